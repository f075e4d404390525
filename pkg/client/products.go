package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ListProducts returns the currency pairs available for trading. The
// response is served from the cache when one is configured.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.getStatic(ctx, "/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProductOrderBook returns open orders for a product. Level 1 returns
// only the best bid and ask, level 2 the top 50 aggregated entries per side
// and level 3 the full non-aggregated book. A zero level leaves the choice
// to the exchange.
func (c *Client) GetProductOrderBook(ctx context.Context, productID string, level int) (*OrderBook, error) {
	query := make(url.Values)
	if level > 0 {
		query.Set("level", strconv.Itoa(level))
	}
	book := new(OrderBook)
	if err := c.get(ctx, fmt.Sprintf("/products/%s/book", productID), query, book); err != nil {
		return nil, err
	}
	return book, nil
}

// GetProductTicker returns a snapshot of the last trade, best bid/ask and
// 24h volume for a product.
func (c *Client) GetProductTicker(ctx context.Context, productID string) (*Ticker, error) {
	ticker := new(Ticker)
	if err := c.get(ctx, fmt.Sprintf("/products/%s/ticker", productID), nil, ticker); err != nil {
		return nil, err
	}
	return ticker, nil
}

// HistoricRatesOptions narrow a historic rates query. All fields are
// optional; the exchange picks defaults for whatever is left unset.
type HistoricRatesOptions struct {
	// Start and End bound the requested range.
	Start time.Time
	End   time.Time

	// Granularity is the candle size in seconds and must be one of 60,
	// 300, 900, 3600, 21600 or 86400 when set.
	Granularity int
}

// GetProductHistoricRates returns historic candles for a product. The
// granularity is validated locally before any request goes out: the
// exchange rejects requests that would yield more than 300 candles, so
// unsupported granularities would only waste a round trip.
func (c *Client) GetProductHistoricRates(ctx context.Context, productID string, opts HistoricRatesOptions) ([]Candle, error) {
	if err := validateGranularity(opts.Granularity); err != nil {
		return nil, err
	}

	query := make(url.Values)
	if !opts.Start.IsZero() {
		query.Set("start", opts.Start.Format(time.RFC3339))
	}
	if !opts.End.IsZero() {
		query.Set("end", opts.End.Format(time.RFC3339))
	}
	if opts.Granularity > 0 {
		query.Set("granularity", strconv.Itoa(opts.Granularity))
	}

	var candles []Candle
	if err := c.get(ctx, fmt.Sprintf("/products/%s/candles", productID), query, &candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// GetProduct24HrStats returns 24 hour stats for a product.
func (c *Client) GetProduct24HrStats(ctx context.Context, productID string) (*Stats, error) {
	stats := new(Stats)
	if err := c.get(ctx, fmt.Sprintf("/products/%s/stats", productID), nil, stats); err != nil {
		return nil, err
	}
	return stats, nil
}
