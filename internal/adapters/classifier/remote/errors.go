package remote

import (
	"errors"
)

// Sentinel kinds for sidecar errors.
var (
	ErrInvalidConfig    = errors.New("invalid remote classifier config")
	ErrUnexpectedStatus = errors.New("unexpected sidecar status")
	ErrDecode           = errors.New("decode sidecar response")
	ErrRateLimited      = errors.New("sidecar rate limit wait aborted")
)
