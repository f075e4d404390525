package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rszymani/coinbasepro-go/pkg/pagination"
)

// TradesOptions configure a trade-history walk.
type TradesOptions struct {
	// After requests only trades older than this trade id. Zero starts
	// from the most recent trade.
	After int64

	// Before is not supported: the exchange cannot combine it with after
	// and this client only pages backward in time. Any nonzero value is
	// rejected before a request is issued.
	Before int64

	// StopPagination halts the walk once it reaches this trade id,
	// emulating the missing before filter.
	StopPagination int64

	// Limit is the page size per request, up to 100. Zero uses the client
	// default.
	Limit int
}

// GetProductTrades lists the latest trades for a product, newest first.
// The returned iterator fetches further pages on demand while it is
// consumed, so the full history can be walked without holding it in
// memory.
func (c *Client) GetProductTrades(ctx context.Context, productID string, opts TradesOptions) (*TradeIterator, error) {
	if opts.Before != 0 {
		return nil, ErrBeforeUnsupported
	}
	if opts.Limit <= 0 {
		opts.Limit = c.config.PageLimit
	}

	endpoint := fmt.Sprintf("/products/%s/trades", productID)
	cursor := pagination.NewCursor(
		&tradePageFetcher{client: c, endpoint: endpoint},
		pagination.Config{
			After:    opts.After,
			Limit:    opts.Limit,
			Stop:     opts.StopPagination,
			Delay:    c.config.PageDelay,
			Endpoint: endpoint,
		},
	)
	return &TradeIterator{cursor: cursor}, nil
}

// TradeIterator walks the trade history of a product one trade at a time.
// It is not safe for concurrent use.
type TradeIterator struct {
	cursor *pagination.Cursor
}

// Next returns the next trade. It returns pagination.Done after the last
// one. Stopping early is fine: no request beyond the one in flight is ever
// issued on behalf of an abandoned iterator.
func (it *TradeIterator) Next(ctx context.Context) (*Trade, error) {
	raw, err := it.cursor.Next(ctx)
	if err != nil {
		return nil, err
	}
	trade := new(Trade)
	if err := json.Unmarshal(raw, trade); err != nil {
		return nil, fmt.Errorf("decode trade: %w", err)
	}
	return trade, nil
}

// tradePageFetcher issues single trade-history page requests and extracts
// the continuation cursor from the Cb-After response header.
type tradePageFetcher struct {
	client   *Client
	endpoint string
}

func (f *tradePageFetcher) FetchPage(ctx context.Context, after int64, limit int) (pagination.Page, error) {
	query := make(url.Values)
	query.Set("limit", strconv.Itoa(limit))
	if after != 0 {
		query.Set("after", strconv.FormatInt(after, 10))
	}

	var items []json.RawMessage
	header, err := f.client.do(ctx, http.MethodGet, f.endpoint, query, nil, &items)
	if err != nil {
		return pagination.Page{}, err
	}

	page := pagination.Page{Items: items}
	if v := header.Get("Cb-After"); v != "" {
		next, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return pagination.Page{}, fmt.Errorf("parse Cb-After header %q: %w", v, err)
		}
		page.NextAfter = next
	}
	return page, nil
}
