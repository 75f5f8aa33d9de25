package utils

import (
	"errors"
)

// Error definitions
var (
	ErrNoCurrentContext    = errors.New("no current kubernetes context found")
	ErrMetricsUnavailable  = errors.New("metrics API not available")
	ErrInvalidOutputFormat = errors.New("invalid output format")
)
