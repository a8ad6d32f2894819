package classifier

import (
	"errors"
)

// Sentinel kinds for classifier errors.
var (
	ErrNotLoaded       = errors.New("classifier not loaded")
	ErrInvalidArtifact = errors.New("invalid model artifact")
	ErrUnknownFeature  = errors.New("unknown feature")
)
