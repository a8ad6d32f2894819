package classifier_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/winprob/internal/domain/classifier"
	"github.com/okian/winprob/internal/domain/match"
)

const testArtifact = `
name: test-model
version: "1"
intercept: 0.5
numeric:
  runs_left:
    mean: 80
    scale: 40
    weight: -2
  wickets:
    mean: 5
    scale: 2
    weight: 1
categorical:
  city:
    Mumbai: 0.25
`

func chase() match.Features {
	return match.Derive(match.State{
		BattingTeam: "Chennai Super Kings",
		BowlingTeam: "Mumbai Indians",
		City:        "Mumbai",
		TotalRunsX:  180,
		CurrentRuns: 90,
		OversLeft:   10,
		WicketsLeft: 7,
	})
}

func TestFixedAndFunc(t *testing.T) {
	Convey("Given a fixed classifier", t, func() {
		c := classifier.Fixed(0.3, 0.7)

		Convey("When predicting twice", func() {
			first, err := c.PredictProbability(context.Background(), chase())
			So(err, ShouldBeNil)
			first[0] = 99
			second, err := c.PredictProbability(context.Background(), chase())

			Convey("Then each call should return a fresh copy", func() {
				So(err, ShouldBeNil)
				So(second, ShouldResemble, []float64{0.3, 0.7})
			})
		})
	})

	Convey("Given a function classifier", t, func() {
		var seen match.Features
		c := classifier.Func(func(_ context.Context, f match.Features) ([]float64, error) {
			seen = f
			return nil, errors.New("boom")
		})

		Convey("Then it should forward the features and the error", func() {
			_, err := c.PredictProbability(context.Background(), chase())
			So(err, ShouldNotBeNil)
			So(seen.BallsLeft, ShouldEqual, 60)
		})
	})
}

func TestCheck(t *testing.T) {
	Convey("Given classifiers with and without health checks", t, func() {
		Convey("Then a nil classifier should not be loaded", func() {
			So(errors.Is(classifier.Check(context.Background(), nil), classifier.ErrNotLoaded), ShouldBeTrue)
		})

		Convey("Then a plain classifier should count as healthy", func() {
			So(classifier.Check(context.Background(), classifier.Fixed(0.5, 0.5)), ShouldBeNil)
		})

		Convey("Then a logistic model should report healthy", func() {
			m, err := classifier.ParseLogistic([]byte(testArtifact))
			So(err, ShouldBeNil)
			So(classifier.Check(context.Background(), m), ShouldBeNil)
		})
	})
}

func TestLogistic(t *testing.T) {
	Convey("Given a parsed logistic artifact", t, func() {
		m, err := classifier.ParseLogistic([]byte(testArtifact))
		So(err, ShouldBeNil)
		So(m.Name(), ShouldEqual, "test-model")
		So(m.Version(), ShouldEqual, "1")

		Convey("When predicting a chase", func() {
			probs, err := m.PredictProbability(context.Background(), chase())

			Convey("Then it should return a bowling/batting pair from the sigmoid", func() {
				So(err, ShouldBeNil)
				So(len(probs), ShouldEqual, classifier.NumClasses)
				// z = 0.5 + (-2)(90-80)/40 + (1)(7-5)/2 + 0.25 = 1.25
				want := 1 / (1 + math.Exp(-1.25))
				So(probs[classifier.ClassBattingWins], ShouldAlmostEqual, want, 1e-12)
				So(probs[classifier.ClassBowlingWins]+probs[classifier.ClassBattingWins], ShouldAlmostEqual, 1, 1e-12)
			})
		})

		Convey("When more runs are needed", func() {
			easy, _ := m.PredictProbability(context.Background(), chase())
			hard := chase()
			hard.RunsLeft = 150
			tough, _ := m.PredictProbability(context.Background(), hard)

			Convey("Then the batting side should be less likely to win", func() {
				So(tough[classifier.ClassBattingWins], ShouldBeLessThan, easy[classifier.ClassBattingWins])
			})
		})

		Convey("When the city is not in the artifact", func() {
			f := chase()
			f.City = "Dharamsala"
			probs, err := m.PredictProbability(context.Background(), f)

			Convey("Then the category should contribute nothing", func() {
				So(err, ShouldBeNil)
				want := 1 / (1 + math.Exp(-1.0))
				So(probs[classifier.ClassBattingWins], ShouldAlmostEqual, want, 1e-12)
			})
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := m.PredictProbability(ctx, chase())

			Convey("Then it should fail with the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given invalid artifacts", t, func() {
		Convey("Then an artifact without coefficients should be rejected", func() {
			_, err := classifier.ParseLogistic([]byte("name: empty\nintercept: 1\n"))
			So(errors.Is(err, classifier.ErrInvalidArtifact), ShouldBeTrue)
		})

		Convey("Then an unknown column should be rejected", func() {
			_, err := classifier.ParseLogistic([]byte("numeric:\n  venue_capacity:\n    weight: 1\n"))
			So(errors.Is(err, classifier.ErrUnknownFeature), ShouldBeTrue)
		})

		Convey("Then malformed YAML should be rejected", func() {
			_, err := classifier.ParseLogistic([]byte("numeric: [1, 2"))
			So(errors.Is(err, classifier.ErrInvalidArtifact), ShouldBeTrue)
		})
	})

	Convey("Given a JSON artifact on disk", t, func() {
		path := filepath.Join(t.TempDir(), "model.json")
		doc := `{"name":"json-model","intercept":0,"numeric":{"rrr":{"mean":0,"scale":1,"weight":0}}}`
		So(os.WriteFile(path, []byte(doc), 0o600), ShouldBeNil)

		Convey("When loading it", func() {
			m, err := classifier.LoadLogistic(path)

			Convey("Then a zero model should be a coin toss", func() {
				So(err, ShouldBeNil)
				probs, err := m.PredictProbability(context.Background(), chase())
				So(err, ShouldBeNil)
				So(probs, ShouldResemble, []float64{0.5, 0.5})
			})
		})

		Convey("When the file is missing", func() {
			_, err := classifier.LoadLogistic(filepath.Join(t.TempDir(), "missing.yaml"))

			Convey("Then loading should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given the bundled IPL artifact", t, func() {
		m, err := classifier.LoadLogistic(filepath.Join("..", "..", "..", "models", "ipl_logistic.yaml"))
		So(err, ShouldBeNil)

		Convey("Then a balanced chase should give a valid pair", func() {
			probs, err := m.PredictProbability(context.Background(), chase())
			So(err, ShouldBeNil)
			So(probs[0], ShouldBeBetween, 0, 1)
			So(probs[0]+probs[1], ShouldAlmostEqual, 1, 1e-9)
		})
	})
}
