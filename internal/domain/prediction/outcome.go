// Package prediction turns a raw match state into rounded win
// probabilities, converting every fault into a reportable outcome.
package prediction

import (
	"github.com/okian/winprob/internal/domain/match"
)

// Payload messages for the predictable failures.
const (
	MsgNoBallsLeft      = "Cannot predict when no balls are left"
	MsgNoOversLeft      = "Cannot predict when no overs are left"
	msgPredictionFailed = "Prediction failed: "
)

// Kind classifies an Outcome.
type Kind int

// Outcome kinds.
const (
	Success Kind = iota
	SoftFailure
	HardFailure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case SoftFailure:
		return "soft_failure"
	case HardFailure:
		return "hard_failure"
	default:
		return "unknown"
	}
}

// Result holds percentages rounded to two decimals.
type Result struct {
	BattingWinProbability float64 `json:"batting_win_probability"`
	BowlingWinProbability float64 `json:"bowling_win_probability"`
}

// Outcome is what Predict returns: a Result on success, otherwise an error
// whose Message is safe to hand back to the caller.
type Outcome struct {
	Kind   Kind
	Result Result
	// Features is set once derivation ran, even when the classifier failed.
	Features *match.Features
	Err      error

	message string
}

// OK reports whether the outcome carries a Result.
func (o Outcome) OK() bool { return o.Kind == Success }

// Message returns the caller-facing error text, empty on success.
func (o Outcome) Message() string { return o.message }

func success(f match.Features, r Result) Outcome {
	return Outcome{Kind: Success, Result: r, Features: &f}
}

func soft(err error, msg string) Outcome {
	return Outcome{Kind: SoftFailure, Err: err, message: msg}
}

func hard(f *match.Features, cause error) Outcome {
	return Outcome{
		Kind:     HardFailure,
		Features: f,
		Err:      wrapFailed(cause),
		message:  msgPredictionFailed + cause.Error(),
	}
}
