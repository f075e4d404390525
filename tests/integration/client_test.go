package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rszymani/coinbasepro-go/internal/testutil"
	"github.com/rszymani/coinbasepro-go/pkg/client"
	"github.com/rszymani/coinbasepro-go/pkg/pagination"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newCachedClient(t *testing.T, mock *testutil.MockExchange, redisClient *redis.Client) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig()
	cfg.BaseURL = mock.URL()
	cfg.Redis = redisClient
	cfg.CacheTTL = time.Minute
	cfg.PageDelay = time.Millisecond

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

// TestCachedEndpointFlow tests the complete flow for a static endpoint:
// cache miss, upstream request, cache store, then a cache hit that skips
// the exchange entirely.
func TestCachedEndpointFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockExchange()
	defer mock.Close()

	mock.SetResponse("/products", testutil.Response{
		StatusCode: 200,
		Body: `[
			{"id": "BTC-USD", "base_currency": "BTC", "quote_currency": "USD"},
			{"id": "ETH-USD", "base_currency": "ETH", "quote_currency": "USD"}
		]`,
	})

	c := newCachedClient(t, mock, redisClient)
	ctx := context.Background()

	// Request 1: cache miss, goes upstream.
	products, err := c.ListProducts(ctx)
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("Request 1 products = %d, want 2", len(products))
	}
	if mock.RequestCount() != 1 {
		t.Errorf("After request 1: upstream requests = %d, want 1", mock.RequestCount())
	}

	// Request 2: served from Redis, no upstream call.
	products, err = c.ListProducts(ctx)
	if err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("Request 2 products = %d, want 2", len(products))
	}
	if mock.RequestCount() != 1 {
		t.Errorf("After request 2: upstream requests = %d, want 1 (cache hit)", mock.RequestCount())
	}
}

// TestCacheSharedAcrossClients tests that two clients backed by the same
// Redis share cached responses.
func TestCacheSharedAcrossClients(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockExchange()
	defer mock.Close()

	mock.SetResponse("/currencies", testutil.Response{
		StatusCode: 200,
		Body:       `[{"id": "BTC", "name": "Bitcoin", "min_size": "0.00000001"}]`,
	})

	ctx := context.Background()

	c1 := newCachedClient(t, mock, redisClient)
	if _, err := c1.ListCurrencies(ctx); err != nil {
		t.Fatalf("First client request failed: %v", err)
	}

	c2 := newCachedClient(t, mock, redisClient)
	currencies, err := c2.ListCurrencies(ctx)
	if err != nil {
		t.Fatalf("Second client request failed: %v", err)
	}
	if len(currencies) != 1 || currencies[0].ID != "BTC" {
		t.Errorf("Second client currencies = %+v, want [BTC]", currencies)
	}

	if mock.RequestCount() != 1 {
		t.Errorf("Upstream requests = %d, want 1 (shared cache)", mock.RequestCount())
	}
}

// TestTradesPaginationFlow walks a multi-page trade history end to end,
// verifying that the cursor parameters follow the exchange headers and
// that trade pages are never cached.
func TestTradesPaginationFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockExchange()
	defer mock.Close()

	mock.SetTradesPages("BTC-USD", []testutil.TradesPage{
		{Body: `[{"trade_id": 300, "price": "10.0", "size": "1.0", "side": "buy", "time": "2020-01-01T00:00:02Z"},
		         {"trade_id": 299, "price": "10.1", "size": "2.0", "side": "sell", "time": "2020-01-01T00:00:01Z"}]`,
			CbAfter: "298"},
		{Body: `[{"trade_id": 298, "price": "10.2", "size": "0.5", "side": "buy", "time": "2020-01-01T00:00:00Z"}]`},
	})

	c := newCachedClient(t, mock, redisClient)
	ctx := context.Background()

	it, err := c.GetProductTrades(ctx, "BTC-USD", client.TradesOptions{})
	if err != nil {
		t.Fatalf("GetProductTrades failed: %v", err)
	}

	var ids []int64
	for {
		trade, err := it.Next(ctx)
		if errors.Is(err, pagination.Done) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		ids = append(ids, trade.TradeID)
	}

	want := []int64{300, 299, 298}
	if len(ids) != len(want) {
		t.Fatalf("Trade IDs = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Trade ID[%d] = %d, want %d", i, ids[i], want[i])
		}
	}

	requests := mock.RequestsTo("/products/BTC-USD/trades")
	if len(requests) != 2 {
		t.Fatalf("Trade requests = %d, want 2", len(requests))
	}
	if got := requests[1].Query.Get("after"); got != "298" {
		t.Errorf("Second request after = %q, want 298", got)
	}

	// A repeated walk goes upstream again: trade history is paginated
	// live data and bypasses the cache.
	it2, err := c.GetProductTrades(ctx, "BTC-USD", client.TradesOptions{})
	if err != nil {
		t.Fatalf("GetProductTrades (second walk) failed: %v", err)
	}
	mock.SetTradesPages("BTC-USD", []testutil.TradesPage{
		{Body: `[{"trade_id": 300, "price": "10.0", "size": "1.0", "side": "buy", "time": "2020-01-01T00:00:02Z"}]`},
	})
	if _, err := it2.Next(ctx); err != nil {
		t.Fatalf("Second walk Next failed: %v", err)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("Upstream requests = %d, want 3 (trades never cached)", mock.RequestCount())
	}
}
