// Package pagination implements cursor-based iteration over paginated
// exchange endpoints.
//
// The exchange pages historical data with an opaque after cursor carried in
// the Cb-After response header: each request returns one page plus the
// cursor for the next (older) page, and an absent header means the data is
// exhausted. The exchange does not support bounding such a walk from the
// other side, so Cursor additionally enforces a caller-supplied stop
// boundary by shrinking the limit of the final request.
//
// Example usage:
//
//	cur := pagination.NewCursor(fetcher, pagination.Config{
//		Stop:     74,
//		Endpoint: "/products/BTC-USD/trades",
//	})
//	for {
//		item, err := cur.Next(ctx)
//		if err == pagination.Done {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		// decode item
//	}
//
// Pages are fetched lazily, one at a time, on demand: the consumer drives
// progress and no request runs ahead of consumption.
package pagination
