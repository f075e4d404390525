package client

import "context"

// GetServerTime returns the exchange server time.
func (c *Client) GetServerTime(ctx context.Context) (*ServerTime, error) {
	st := new(ServerTime)
	if err := c.get(ctx, "/time", nil, st); err != nil {
		return nil, err
	}
	return st, nil
}
