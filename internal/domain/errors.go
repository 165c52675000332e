package domain

import (
	"errors"
	"fmt"
)

var (
	// unknown or malformed period token / custom range
	ErrInvalidPeriod = errors.New("invalid report period")

	// unknown source filter token
	ErrInvalidSourceFilter = errors.New("invalid source filter")

	// the source catalog could not be served and the query must
	// fail rather than run against a guessed source set
	ErrCatalogUnavailable = errors.New("traffic source catalog unavailable")
)

// an error from the tracker admin API. Distinguishes a failed
// fetch from a genuinely empty result set.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tracker %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("tracker %s failed: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
