package report

import "errors"

// Sentinel kinds for report errors.
var (
	ErrInvalidAverage = errors.New("invalid average")
)
