package prediction

import (
	"errors"
)

// Sentinel kinds for prediction outcomes.
var (
	ErrNoBallsLeft      = errors.New("no balls left")
	ErrNoOversLeft      = errors.New("no overs left")
	ErrPredictionFailed = errors.New("prediction failed")
	ErrMalformedResult  = errors.New("malformed classifier result")
	ErrClassifierPanic  = errors.New("classifier panicked")
	ErrNoClassifier     = errors.New("no classifier configured")
	ErrInvalidState     = errors.New("invalid match state")
	ErrPredictionPanic  = errors.New("prediction panicked")
)
