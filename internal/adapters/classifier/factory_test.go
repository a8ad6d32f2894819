package classifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/winprob/internal/adapters/classifier/remote"
	domain "github.com/okian/winprob/internal/domain/classifier"
	"github.com/okian/winprob/internal/domain/match"
	"github.com/okian/winprob/pkg/metrics"
)

var bundledModel = filepath.Join("..", "..", "..", "models", "ipl_logistic.yaml")

func chase() match.Features {
	return match.Derive(match.State{
		BattingTeam: "Punjab Kings",
		BowlingTeam: "Delhi Capitals",
		City:        "Mohali",
		TotalRunsX:  175,
		CurrentRuns: 101,
		OversLeft:   6.4,
		WicketsLeft: 5,
	})
}

func TestBuild(t *testing.T) {
	Convey("Given the logistic backend", t, func() {
		Convey("When building with a cache", func() {
			b, err := Build(context.Background(), Settings{
				Backend:   BackendLogistic,
				ModelPath: bundledModel,
				CacheTTL:  time.Minute,
			})
			So(err, ShouldBeNil)
			defer b.Close()

			Convey("Then the classifier should answer and populate the cache", func() {
				So(b.Backend, ShouldEqual, BackendLogistic)
				So(b.Cache, ShouldNotBeNil)
				probs, err := b.Classifier.PredictProbability(context.Background(), chase())
				So(err, ShouldBeNil)
				So(len(probs), ShouldEqual, 2)
				So(b.Cache.Stats().Items, ShouldEqual, 1)
			})

			Convey("Then the health check should pass through the decorators", func() {
				So(domain.Check(context.Background(), b.Classifier), ShouldBeNil)
			})
		})

		Convey("When building without a cache", func() {
			b, err := Build(context.Background(), Settings{Backend: BackendLogistic, ModelPath: bundledModel})

			Convey("Then no cache should be attached", func() {
				So(err, ShouldBeNil)
				So(b.Cache, ShouldBeNil)
			})
		})

		Convey("When the artifact is missing", func() {
			_, err := Build(context.Background(), Settings{Backend: BackendLogistic, ModelPath: "does-not-exist.yaml"})

			Convey("Then building should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given the remote backend", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				w.WriteHeader(http.StatusOK)
				return
			}
			_, _ = w.Write([]byte(`{"probabilities":[0.25,0.75]}`))
		}))
		defer srv.Close()

		cfg := remote.DefaultConfig()
		cfg.BaseURL = srv.URL

		b, err := Build(context.Background(), Settings{Backend: BackendRemote, Remote: cfg})
		So(err, ShouldBeNil)

		Convey("Then predictions should come from the sidecar", func() {
			probs, err := b.Classifier.PredictProbability(context.Background(), chase())
			So(err, ShouldBeNil)
			So(probs, ShouldResemble, []float64{0.25, 0.75})
			So(b.Close(), ShouldBeNil)
		})
	})

	Convey("Given an unknown backend", t, func() {
		_, err := Build(context.Background(), Settings{Backend: "onnx"})

		Convey("Then it should be rejected", func() {
			So(errors.Is(err, ErrUnknownBackend), ShouldBeTrue)
		})
	})
}

func TestInstrument(t *testing.T) {
	Convey("Given an instrumented failing classifier", t, func() {
		c := Instrument(domain.Func(func(context.Context, match.Features) ([]float64, error) {
			return nil, errors.New("boom")
		}), "instrument-test")

		Convey("Then failures should be counted per backend", func() {
			before := classifierErrors("instrument-test")
			_, err := c.PredictProbability(context.Background(), chase())
			So(err, ShouldNotBeNil)
			So(classifierErrors("instrument-test")-before, ShouldEqual, 1)
		})

		Convey("Then a healthy backend should flag the model as loaded", func() {
			So(c.(domain.HealthChecker).HealthCheck(context.Background()), ShouldBeNil)
		})
	})
}

// classifierErrors reads the classifier error counter for backend from the
// shared registry.
func classifierErrors(backend string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if f.GetName() != "winprob_predictor_classifier_errors_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "backend" && l.GetValue() == backend {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
