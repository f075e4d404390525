package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrInvalidArgument is returned for argument errors detected before
	// any request is issued.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBeforeUnsupported is returned when a before cursor is supplied to
	// a paginated call. The exchange cannot combine before with after, and
	// this client only pages in the after direction; use StopPagination to
	// bound the walk instead.
	ErrBeforeUnsupported = fmt.Errorf("%w: before parameter is not supported, use StopPagination", ErrInvalidArgument)
)

// acceptedGranularities are the candle sizes the exchange accepts, in
// seconds.
var acceptedGranularities = []int{60, 300, 900, 3600, 21600, 86400}

// validateGranularity rejects candle granularities outside the accepted
// set. A zero granularity is treated as unset and passes.
func validateGranularity(granularity int) error {
	if granularity == 0 {
		return nil
	}
	for _, g := range acceptedGranularities {
		if granularity == g {
			return nil
		}
	}
	return fmt.Errorf("%w: granularity is %d, must be one of %v",
		ErrInvalidArgument, granularity, acceptedGranularities)
}
