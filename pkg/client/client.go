// Package client provides the public market-data REST client for the
// Coinbase Pro exchange API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rszymani/coinbasepro-go/pkg/cache"
)

// DefaultBaseURL is the public production API endpoint.
const DefaultBaseURL = "https://api.pro.coinbase.com"

// Prometheus metrics for exchange requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cbpro_requests_total",
		Help: "Total exchange requests by endpoint and HTTP status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cbpro_request_duration_seconds",
		Help:    "Exchange request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	decodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cbpro_decode_errors_total",
		Help: "Responses that could not be decoded as JSON",
	})
)

// Client is the public market-data client. It performs single-shot requests
// directly and hands the trade-history endpoint to a pagination cursor.
//
// One Client may be shared across goroutines for single-shot calls; a trade
// iterator obtained from it is strictly sequential and must be consumed by
// one goroutine.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	cache      *cache.Manager
	logger     zerolog.Logger
}

// Config holds the client configuration. All knobs are fixed at
// construction time; there are no per-request overrides.
type Config struct {
	// BaseURL of the exchange REST API. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout for each HTTP request. Defaults to 30s.
	Timeout time.Duration

	// PageDelay is inserted after every page fetch of a paginated call.
	// Defaults to 500ms.
	PageDelay time.Duration

	// PageLimit is the default page size of paginated calls. Defaults to
	// 100, which is also the exchange maximum.
	PageLimit int

	// Redis enables response caching for the static endpoints (products,
	// currencies) when set. Nil disables caching.
	Redis *redis.Client

	// CacheTTL is the lifetime of cached static responses. Defaults to
	// one minute.
	CacheTTL time.Duration

	// UserAgent header sent with every request, empty for none.
	UserAgent string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   30 * time.Second,
		PageDelay: 500 * time.Millisecond,
		PageLimit: 100,
		CacheTTL:  time.Minute,
	}
}

// New creates a market-data client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = 500 * time.Millisecond
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 100
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}

	logger := log.With().Str("component", "cbpro-client").Logger()

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		cache:   cacheManager,
		logger:  logger,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// do performs one HTTP request against the exchange and decodes the JSON
// body into result. The body is decoded regardless of the HTTP status: the
// exchange reports errors as JSON objects and no status translation is
// performed here. The response headers are returned for callers that need
// the pagination cursor.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, result interface{}) (http.Header, error) {
	data, _, header, err := c.doBytes(ctx, method, endpoint, query, body)
	if err != nil {
		return nil, err
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			decodeErrorsTotal.Inc()
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Could not decode response")
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return header, nil
}

// doBytes issues the request and returns the raw response body, the HTTP
// status and the response headers.
func (c *Client) doBytes(ctx context.Context, method, endpoint string, query url.Values, body interface{}) ([]byte, int, http.Header, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Request failed")
		return nil, 0, nil, err
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	if resp.StatusCode >= 400 {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("Exchange returned error status")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return data, resp.StatusCode, resp.Header, nil
}

// GetRaw performs a GET request and returns the raw response body, HTTP
// status and headers without decoding. It exists for pass-through callers
// such as the proxy binary; typed endpoint methods are preferred.
func (c *Client) GetRaw(ctx context.Context, endpoint string, query url.Values) ([]byte, int, http.Header, error) {
	return c.doBytes(ctx, http.MethodGet, endpoint, query, nil)
}

// get performs a GET request and decodes the response into result.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, result interface{}) error {
	_, err := c.do(ctx, http.MethodGet, endpoint, query, nil, result)
	return err
}

// getStatic is get with an optional cache in front, used for endpoints
// whose payloads change rarely. Cache failures degrade to a direct request.
func (c *Client) getStatic(ctx context.Context, endpoint string, result interface{}) error {
	if c.cache == nil {
		return c.get(ctx, endpoint, nil, result)
	}

	key := cache.Key{Endpoint: endpoint}
	if data, err := c.cache.Get(ctx, key); err == nil {
		if err := json.Unmarshal(data, result); err == nil {
			c.logger.Debug().Str("endpoint", endpoint).Msg("Served from cache")
			return nil
		}
		// poisoned entry; fall through to a fresh request
		_ = c.cache.Delete(ctx, key)
	} else if err != cache.ErrCacheMiss {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
	}

	data, status, _, err := c.doBytes(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, result); err != nil {
		decodeErrorsTotal.Inc()
		return fmt.Errorf("decode response: %w", err)
	}
	// Error bodies decode too but must never be cached.
	if status == http.StatusOK {
		if err := c.cache.Set(ctx, key, data, c.config.CacheTTL); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Could not cache response")
		}
	}
	return nil
}
