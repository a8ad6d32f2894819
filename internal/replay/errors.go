package replay

import "errors"

// Sentinel errors for replay runs.
var (
	ErrInvalidInnings = errors.New("invalid innings")
	ErrUnknownMode    = errors.New("unknown replay mode")
	ErrUnknownFormat  = errors.New("unknown output format")
	ErrRequest        = errors.New("prediction request failed")
)
