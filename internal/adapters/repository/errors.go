package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidIdentity = errors.New("invalid identity")
)
