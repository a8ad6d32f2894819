package classifier

import (
	"context"
	"time"

	domain "github.com/okian/winprob/internal/domain/classifier"
	"github.com/okian/winprob/internal/domain/match"
	"github.com/okian/winprob/pkg/metrics"
)

type instrumented struct {
	next    domain.Classifier
	backend string
}

// Instrument records latency and failures of next under the backend label.
func Instrument(next domain.Classifier, backend string) domain.Classifier {
	return &instrumented{next: next, backend: backend}
}

func (i *instrumented) PredictProbability(ctx context.Context, f match.Features) ([]float64, error) {
	start := time.Now()
	probs, err := i.next.PredictProbability(ctx, f)
	metrics.RecordClassifierLatency(i.backend, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordClassifierError(i.backend)
	}
	return probs, err
}

func (i *instrumented) HealthCheck(ctx context.Context) error {
	err := domain.Check(ctx, i.next)
	metrics.SetModelLoaded(err == nil)
	return err
}
