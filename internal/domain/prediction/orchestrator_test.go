package prediction_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/winprob/internal/domain/classifier"
	"github.com/okian/winprob/internal/domain/match"
	"github.com/okian/winprob/internal/domain/prediction"
	"github.com/okian/winprob/pkg/logger"
)

func midChase() match.State {
	return match.State{
		BattingTeam: "Chennai Super Kings",
		BowlingTeam: "Mumbai Indians",
		City:        "Mumbai",
		TotalRunsX:  180,
		CurrentRuns: 90,
		OversLeft:   10.0,
		WicketsLeft: 7,
	}
}

// countingClassifier records how often it was invoked.
type countingClassifier struct {
	calls int
	next  classifier.Classifier
}

func (c *countingClassifier) PredictProbability(ctx context.Context, f match.Features) ([]float64, error) {
	c.calls++
	return c.next.PredictProbability(ctx, f)
}

func TestPredictSuccess(t *testing.T) {
	Convey("Given a classifier returning [0.3, 0.7]", t, func() {
		o := prediction.New(classifier.Fixed(0.3, 0.7))

		Convey("When predicting mid chase", func() {
			out := o.Predict(context.Background(), midChase())

			Convey("Then the batting side should get the second probability", func() {
				So(out.Kind, ShouldEqual, prediction.Success)
				So(out.OK(), ShouldBeTrue)
				So(out.Err, ShouldBeNil)
				So(out.Message(), ShouldBeEmpty)
				So(out.Result, ShouldResemble, prediction.Result{BattingWinProbability: 70, BowlingWinProbability: 30})
			})
		})
	})

	Convey("Given the 180 target scenario with [0.4, 0.6]", t, func() {
		var seen match.Features
		o := prediction.New(classifier.Func(func(_ context.Context, f match.Features) ([]float64, error) {
			seen = f
			return []float64{0.4, 0.6}, nil
		}))

		Convey("When predicting", func() {
			out := o.Predict(context.Background(), midChase())

			Convey("Then the classifier should see the derived features", func() {
				So(seen.RunsLeft, ShouldEqual, 90)
				So(seen.BallsLeft, ShouldEqual, 60)
				So(seen.CurrentRate, ShouldAlmostEqual, 9, 1e-9)
				So(seen.RequiredRunRate, ShouldAlmostEqual, 9, 1e-9)
			})

			Convey("Then the result should be 60/40", func() {
				So(out.Result.BattingWinProbability, ShouldEqual, 60)
				So(out.Result.BowlingWinProbability, ShouldEqual, 40)
				So(out.Features, ShouldNotBeNil)
				So(out.Features.Wickets, ShouldEqual, 7)
			})
		})
	})

	Convey("Given probabilities needing rounding", t, func() {
		o := prediction.New(classifier.Fixed(0.123456, 0.876544))

		Convey("Then each side should be rounded to two decimals", func() {
			out := o.Predict(context.Background(), midChase())
			So(out.Kind, ShouldEqual, prediction.Success)
			So(out.Result.BowlingWinProbability, ShouldEqual, 12.35)
			So(out.Result.BattingWinProbability, ShouldEqual, 87.65)
		})

		Convey("Then exact ties should round away from zero", func() {
			out := prediction.New(classifier.Fixed(0.00125, 0.99875)).Predict(context.Background(), midChase())
			So(out.Result.BowlingWinProbability, ShouldEqual, 0.13)
			So(out.Result.BattingWinProbability, ShouldEqual, 99.88)
		})
	})
}

func TestPredictSoftFailures(t *testing.T) {
	Convey("Given a counting classifier", t, func() {
		c := &countingClassifier{next: classifier.Fixed(0.5, 0.5)}
		o := prediction.New(c)

		Convey("When no overs are left", func() {
			s := midChase()
			s.OversLeft = 0
			out := o.Predict(context.Background(), s)

			Convey("Then the zero-ball guard should answer first", func() {
				So(out.Kind, ShouldEqual, prediction.SoftFailure)
				So(out.Message(), ShouldEqual, "Cannot predict when no balls are left")
				So(errors.Is(out.Err, prediction.ErrNoBallsLeft), ShouldBeTrue)
				So(c.calls, ShouldEqual, 0)
				So(out.Features, ShouldBeNil)
			})
		})

		Convey("When overs are left but they round to zero balls", func() {
			s := midChase()
			s.OversLeft = 0.04
			out := o.Predict(context.Background(), s)

			Convey("Then it should be a no-balls soft failure", func() {
				So(out.Kind, ShouldEqual, prediction.SoftFailure)
				So(out.Message(), ShouldEqual, prediction.MsgNoBallsLeft)
				So(c.calls, ShouldEqual, 0)
			})
		})

		Convey("When a single ball remains", func() {
			s := midChase()
			s.OversLeft = 0.1
			out := o.Predict(context.Background(), s)

			Convey("Then the classifier should be invoked", func() {
				So(out.Kind, ShouldEqual, prediction.Success)
				So(c.calls, ShouldEqual, 1)
			})
		})
	})
}

func TestPredictHardFailures(t *testing.T) {
	Convey("Given a logger capturing output", t, func() {
		var buf bytes.Buffer
		So(logger.InitWithWriter(&buf), ShouldBeNil)

		Convey("When the classifier returns an error", func() {
			o := prediction.New(classifier.Func(func(context.Context, match.Features) ([]float64, error) {
				return nil, errors.New("model unavailable")
			}), prediction.WithLogger(logger.Get()))
			out := o.Predict(context.Background(), midChase())

			Convey("Then a hard failure payload should be returned and logged", func() {
				So(out.Kind, ShouldEqual, prediction.HardFailure)
				So(out.Message(), ShouldEqual, "Prediction failed: model unavailable")
				So(errors.Is(out.Err, prediction.ErrPredictionFailed), ShouldBeTrue)
				So(out.Features, ShouldNotBeNil)
				So(buf.String(), ShouldContainSubstring, "prediction failed")
				So(buf.String(), ShouldContainSubstring, "model unavailable")
			})
		})

		Convey("When the classifier panics", func() {
			o := prediction.New(classifier.Func(func(context.Context, match.Features) ([]float64, error) {
				panic("index out of range")
			}))

			Convey("Then the panic should not escape", func() {
				var out prediction.Outcome
				So(func() { out = o.Predict(context.Background(), midChase()) }, ShouldNotPanic)
				So(out.Kind, ShouldEqual, prediction.HardFailure)
				So(errors.Is(out.Err, prediction.ErrClassifierPanic), ShouldBeTrue)
				So(strings.HasPrefix(out.Message(), "Prediction failed: "), ShouldBeTrue)
				So(out.Message(), ShouldContainSubstring, "index out of range")
			})
		})

		Convey("When overs left is not a finite number", func() {
			c := &countingClassifier{next: classifier.Fixed(0.4, 0.6)}
			o := prediction.New(c, prediction.WithLogger(logger.Get()))

			for _, overs := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
				st := midChase()
				st.OversLeft = overs

				var out prediction.Outcome
				So(func() { out = o.Predict(context.Background(), st) }, ShouldNotPanic)
				So(out.Kind, ShouldEqual, prediction.HardFailure)
				So(errors.Is(out.Err, prediction.ErrInvalidState), ShouldBeTrue)
				So(out.Message(), ShouldStartWith, "Prediction failed: invalid match state")
				So(out.Features, ShouldBeNil)
			}

			Convey("Then the classifier should never be called", func() {
				So(c.calls, ShouldEqual, 0)
				So(buf.String(), ShouldContainSubstring, "invalid match state")
			})
		})

		Convey("When no classifier is configured", func() {
			out := prediction.New(nil).Predict(context.Background(), midChase())

			Convey("Then it should be a hard failure", func() {
				So(out.Kind, ShouldEqual, prediction.HardFailure)
				So(errors.Is(out.Err, prediction.ErrNoClassifier), ShouldBeTrue)
			})
		})
	})
}

func TestPredictMalformedResults(t *testing.T) {
	Convey("Given classifiers returning malformed results", t, func() {
		cases := []struct {
			name  string
			probs []float64
		}{
			{"too few values", []float64{1}},
			{"too many values", []float64{0.2, 0.3, 0.5}},
			{"negative value", []float64{-0.1, 1.1}},
			{"value above one", []float64{1.5, -0.5}},
			{"not a number", []float64{math.NaN(), 0.5}},
			{"infinite value", []float64{math.Inf(1), 0}},
			{"not summing to one", []float64{0.3, 0.3}},
		}

		for _, tc := range cases {
			Convey("When the result has "+tc.name, func() {
				out := prediction.New(classifier.Fixed(tc.probs...)).Predict(context.Background(), midChase())

				Convey("Then it should be a malformed hard failure", func() {
					So(out.Kind, ShouldEqual, prediction.HardFailure)
					So(errors.Is(out.Err, prediction.ErrMalformedResult), ShouldBeTrue)
					So(out.Message(), ShouldStartWith, "Prediction failed: ")
				})
			})
		}

		Convey("When the pair is off by less than the tolerance", func() {
			out := prediction.New(classifier.Fixed(0.3, 0.7000000001)).Predict(context.Background(), midChase())

			Convey("Then it should still succeed", func() {
				So(out.Kind, ShouldEqual, prediction.Success)
			})
		})
	})
}

func TestKindString(t *testing.T) {
	Convey("Given outcome kinds", t, func() {
		So(prediction.Success.String(), ShouldEqual, "success")
		So(prediction.SoftFailure.String(), ShouldEqual, "soft_failure")
		So(prediction.HardFailure.String(), ShouldEqual, "hard_failure")
		So(prediction.Kind(9).String(), ShouldEqual, "unknown")
	})
}
