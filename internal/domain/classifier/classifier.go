// Package classifier defines the contract for turning a match feature
// vector into win probabilities, plus an in-process logistic model.
package classifier

import (
	"context"

	"github.com/okian/winprob/internal/domain/match"
)

// Class order of every probability pair returned by a Classifier.
const (
	ClassBowlingWins = 0
	ClassBattingWins = 1
	NumClasses       = 2
)

// Classifier returns class probabilities for one feature vector, ordered
// [P(bowling side wins), P(batting side wins)]. Implementations must be safe
// for concurrent use; they are built once and shared by every request.
type Classifier interface {
	PredictProbability(ctx context.Context, f match.Features) ([]float64, error)
}

// HealthChecker is implemented by classifiers that can report readiness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, f match.Features) ([]float64, error)

// PredictProbability calls fn.
func (fn Func) PredictProbability(ctx context.Context, f match.Features) ([]float64, error) {
	return fn(ctx, f)
}

// Fixed returns a Classifier that always answers probs. Useful in tests and
// for dry runs without a model artifact.
func Fixed(probs ...float64) Classifier {
	return Func(func(_ context.Context, _ match.Features) ([]float64, error) {
		out := make([]float64, len(probs))
		copy(out, probs)
		return out, nil
	})
}

// Check reports the health of c, treating classifiers without a
// HealthCheck method as healthy.
func Check(ctx context.Context, c Classifier) error {
	if c == nil {
		return ErrNotLoaded
	}
	if hc, ok := c.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
