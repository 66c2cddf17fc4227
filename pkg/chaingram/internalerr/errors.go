package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrRegionExhausted = errors.New("region byte budget exhausted")
	ErrTokenTooLong    = errors.New("token exceeds boxed length limit")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrClosed          = errors.New("exporter closed")
)
