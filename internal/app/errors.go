package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoCaller   = errors.New("no verified caller")
	ErrNotStarted = errors.New("service not started")
)
