// Command cbpro-proxy is a small pass-through proxy for the exchange's
// public market-data API. It forwards /api/* requests upstream, optionally
// caches static responses in Redis, and exposes /health and Prometheus
// /metrics endpoints.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rszymani/coinbasepro-go/pkg/client"
	"github.com/rszymani/coinbasepro-go/pkg/logging"
)

func main() {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: os.Getenv("LOG_PRETTY") != "",
		Output: os.Stderr,
	})

	apiURL := getEnv("API_URL", client.DefaultBaseURL)
	port := getEnv("PORT", "8080")

	cfg := client.DefaultConfig()
	cfg.BaseURL = apiURL
	cfg.UserAgent = getEnv("USER_AGENT", "cbpro-proxy/1.0")

	// Redis is optional; without it the proxy simply forwards everything.
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis", redisURL).Msg("Could not connect to Redis")
		}
		cfg.Redis = redisClient
		logger.Info().Str("redis", redisURL).Msg("Response cache enabled")
	}

	c, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Could not create exchange client")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/", proxyHandler(c))

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("upstream", apiURL).
		Msg("Starting market-data proxy")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// proxyHandler maps /api/<endpoint> onto the upstream <endpoint> and
// mirrors the upstream response.
func proxyHandler(c *client.Client) http.HandlerFunc {
	logger := logging.NewLogger("proxy")

	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := apiEndpoint(r.URL.Path)
		if endpoint == "" {
			http.NotFound(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		body, status, header, err := c.GetRaw(ctx, endpoint, r.URL.Query())
		if err != nil {
			logger.Error().Err(err).Str("endpoint", endpoint).Msg("Upstream request failed")
			http.Error(w, fmt.Sprintf("upstream request failed: %v", err), http.StatusBadGateway)
			return
		}

		if ct := header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(status)
		if _, err := w.Write(body); err != nil {
			logger.Warn().Err(err).Msg("Could not write response")
		}
	}
}

// apiEndpoint strips the /api prefix from a request path. Empty means the
// path is not a proxyable endpoint.
func apiEndpoint(path string) string {
	endpoint := strings.TrimPrefix(path, "/api")
	if endpoint == path || endpoint == "" || !strings.HasPrefix(endpoint, "/") {
		return ""
	}
	return endpoint
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
