package client

import "context"

// ListCurrencies returns the currencies known to the exchange. The
// response is served from the cache when one is configured.
func (c *Client) ListCurrencies(ctx context.Context) ([]Currency, error) {
	var currencies []Currency
	if err := c.getStatic(ctx, "/currencies", &currencies); err != nil {
		return nil, err
	}
	return currencies, nil
}
