package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Done is returned by Cursor.Next once the paginated sequence is exhausted,
// either because the exchange stopped returning a continuation cursor or
// because the configured stop boundary was reached. It is a normal end of
// iteration, not a failure.
var Done = errors.New("pagination: no more items")

// Prometheus metrics for cursor pagination.
var (
	pagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cbpro_pages_fetched_total",
		Help: "Total pages fetched by paginated endpoint",
	}, []string{"endpoint"})

	pageItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cbpro_page_items_total",
		Help: "Total items emitted by paginated endpoint",
	}, []string{"endpoint"})

	limitShrinksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cbpro_page_limit_shrinks_total",
		Help: "Times the page limit was shrunk to honor a stop boundary",
	})
)

const (
	// DefaultLimit is the default (and maximum) page size of the exchange.
	DefaultLimit = 100

	// DefaultDelay is inserted after every page fetch to stay clear of the
	// exchange rate limits.
	DefaultDelay = 500 * time.Millisecond
)

// Page is one HTTP response worth of items plus the continuation cursor
// extracted from the Cb-After response header. NextAfter is zero when the
// header was missing or empty, which marks the natural end of the data.
type Page struct {
	Items     []json.RawMessage
	NextAfter int64
}

// PageFetcher issues a single page request. An after value of zero means no
// cursor parameter should be sent.
type PageFetcher interface {
	FetchPage(ctx context.Context, after int64, limit int) (Page, error)
}

// Config configures a Cursor.
type Config struct {
	// After requests only data older than this cursor value. Zero starts
	// from the newest data.
	After int64

	// Limit is the requested page size. Defaults to DefaultLimit.
	Limit int

	// Stop halts iteration once the fetched window reaches this cursor
	// value. The exchange cannot express this bound natively when paging
	// with after, so the cursor enforces it by shrinking the final page.
	Stop int64

	// Delay is inserted after each page fetch. Defaults to DefaultDelay.
	Delay time.Duration

	// Endpoint labels metrics and log lines.
	Endpoint string
}

// Cursor walks a paginated endpoint backward in time, fetching pages on
// demand as items are consumed. A new HTTP request is issued only when the
// current page is exhausted and another item is requested, so abandoning a
// Cursor leaves no request outstanding.
//
// Cursor parameters for each page depend on the previous response, so a
// Cursor is strictly sequential and not safe for concurrent use.
type Cursor struct {
	fetcher  PageFetcher
	endpoint string
	delay    time.Duration

	// mutable pagination state, owned exclusively by the cursor
	after int64
	limit int
	stop  int64

	buf  []json.RawMessage
	done bool
	err  error
}

// NewCursor creates a cursor over a paginated endpoint.
func NewCursor(fetcher PageFetcher, cfg Config) *Cursor {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	return &Cursor{
		fetcher:  fetcher,
		endpoint: cfg.Endpoint,
		delay:    cfg.Delay,
		after:    cfg.After,
		limit:    cfg.Limit,
		stop:     cfg.Stop,
	}
}

// Next returns the next item of the logical sequence, fetching further pages
// as needed. It returns Done after the last item. Once Next returns an
// error the cursor is terminal and keeps returning the same error; items
// returned before the failure remain valid.
func (c *Cursor) Next(ctx context.Context) (json.RawMessage, error) {
	if c.err != nil {
		return nil, c.err
	}
	// Empty pages are valid as long as a continuation cursor is present,
	// so keep fetching until an item or a terminal state shows up.
	for len(c.buf) == 0 {
		if c.done {
			return nil, Done
		}
		if err := c.fetch(ctx); err != nil {
			c.err = err
			return nil, err
		}
	}
	item := c.buf[0]
	c.buf = c.buf[1:]
	return item, nil
}

func (c *Cursor) fetch(ctx context.Context) error {
	page, err := c.fetcher.FetchPage(ctx, c.after, c.limit)
	if err != nil {
		return err
	}
	pagesFetched.WithLabelValues(c.endpoint).Inc()
	pageItemsTotal.WithLabelValues(c.endpoint).Add(float64(len(page.Items)))

	log.Debug().
		Str("endpoint", c.endpoint).
		Int("items", len(page.Items)).
		Int64("after", c.after).
		Int64("next_after", page.NextAfter).
		Msg("Fetched page")

	if err := c.pace(ctx); err != nil {
		return err
	}
	c.buf = page.Items
	c.advance(page.NextAfter)
	return nil
}

// advance decides whether another page should be fetched and with which
// parameters. It must run while c.after and c.limit still hold the values
// of the request that produced nextAfter.
func (c *Cursor) advance(nextAfter int64) {
	// No continuation cursor means the exchange ran out of data. The stop
	// boundary is reached exactly when the window of the completed request
	// ends on it.
	if nextAfter == 0 || c.stop == c.after-int64(c.limit) {
		c.done = true
		return
	}
	if c.stop > nextAfter-int64(c.limit) {
		// A full page would overshoot the stop boundary; request only the
		// remaining items.
		limitShrinksTotal.Inc()
		log.Debug().
			Str("endpoint", c.endpoint).
			Int64("stop", c.stop).
			Int64("limit", nextAfter-c.stop).
			Msg("Shrinking page limit at stop boundary")
		c.limit = int(nextAfter - c.stop)
	}
	c.after = nextAfter
}

// pace waits the configured delay after a page fetch, honoring context
// cancellation.
func (c *Cursor) pace(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.delay):
		return nil
	}
}
