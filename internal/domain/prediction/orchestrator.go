package prediction

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/okian/winprob/internal/domain/classifier"
	"github.com/okian/winprob/internal/domain/match"
	"github.com/okian/winprob/pkg/logger"
)

const (
	probabilityTolerance = 1e-6
	percentPlaces        = 2
)

var hundred = decimal.NewFromInt(100) //nolint:gochecknoglobals // immutable constant

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for hard failures.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// Orchestrator guards the match state, derives features, calls the
// classifier and shapes the result. It holds no per-call state.
type Orchestrator struct {
	classifier classifier.Classifier
	log        logger.Logger
}

// New creates an Orchestrator around c.
func New(c classifier.Classifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: c,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Predict never returns an error; every fault is folded into the Outcome.
func (o *Orchestrator) Predict(ctx context.Context, s match.State) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = o.fail(ctx, s, nil, fmt.Errorf("%w: %v", ErrPredictionPanic, r))
		}
	}()

	if math.IsNaN(s.OversLeft) || math.IsInf(s.OversLeft, 0) {
		return o.fail(ctx, s, nil, fmt.Errorf("%w: overs_left is %v", ErrInvalidState, s.OversLeft))
	}

	// 0.04 overs is zero balls but not zero overs, hence two guards.
	if match.OversToBalls(s.OversLeft) == 0 {
		return soft(ErrNoBallsLeft, MsgNoBallsLeft)
	}
	if s.OversLeft == 0 {
		return soft(ErrNoOversLeft, MsgNoOversLeft)
	}

	f := match.Derive(s)

	result, err := o.classify(ctx, f)
	if err != nil {
		return o.fail(ctx, s, &f, err)
	}

	return success(f, result)
}

func (o *Orchestrator) fail(ctx context.Context, s match.State, f *match.Features, err error) Outcome {
	fields := []logger.Field{
		logger.Error(err),
		logger.String("batting_team", s.BattingTeam),
		logger.String("bowling_team", s.BowlingTeam),
	}
	if f != nil {
		fields = append(fields, logger.Int("runs_left", f.RunsLeft), logger.Int("balls_left", f.BallsLeft))
	}
	o.log.Error(ctx, "prediction failed", fields...)
	return hard(f, err)
}

func (o *Orchestrator) classify(ctx context.Context, f match.Features) (res Result, err error) {
	if o.classifier == nil {
		return Result{}, ErrNoClassifier
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrClassifierPanic, r)
		}
	}()

	probs, err := o.classifier.PredictProbability(ctx, f)
	if err != nil {
		return Result{}, err
	}
	if err := validate(probs); err != nil {
		return Result{}, err
	}

	return Result{
		BattingWinProbability: toPercent(probs[classifier.ClassBattingWins]),
		BowlingWinProbability: toPercent(probs[classifier.ClassBowlingWins]),
	}, nil
}

func validate(probs []float64) error {
	if len(probs) != classifier.NumClasses {
		return fmt.Errorf("%w: expected %d probabilities, got %d", ErrMalformedResult, classifier.NumClasses, len(probs))
	}
	sum := 0.0
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %d is %v", ErrMalformedResult, i, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > probabilityTolerance {
		return fmt.Errorf("%w: probabilities sum to %v", ErrMalformedResult, sum)
	}
	return nil
}

// toPercent scales p to a percentage rounded half away from zero. Rounding
// works on the shortest decimal form of p, not its exact binary value, so a
// tie such as 0.00125 becomes 0.13 rather than the banker's 0.12.
func toPercent(p float64) float64 {
	return decimal.NewFromFloat(p).Mul(hundred).Round(percentPlaces).InexactFloat64()
}

func wrapFailed(cause error) error {
	return fmt.Errorf("%w: %w", ErrPredictionFailed, cause)
}
