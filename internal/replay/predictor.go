package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/okian/winprob/internal/domain/match"
	"github.com/okian/winprob/internal/domain/prediction"
)

// Prediction is one answer for one state: either both probabilities or an
// error message, matching the /predict payload.
type Prediction struct {
	BattingWinProbability float64 `json:"batting_win_probability"`
	BowlingWinProbability float64 `json:"bowling_win_probability"`
	Error                 string  `json:"error,omitempty"`
}

// Predictor evaluates a batch of states, returning one Prediction per state
// in input order.
type Predictor interface {
	Predict(ctx context.Context, states []match.State) ([]Prediction, error)
}

// BatchService is the in-process prediction service.
type BatchService interface {
	PredictBatch(ctx context.Context, states []match.State) []prediction.Outcome
}

// Local evaluates states in process.
type Local struct {
	svc BatchService
}

// NewLocal wraps svc.
func NewLocal(svc BatchService) *Local {
	return &Local{svc: svc}
}

// Predict implements Predictor.
func (l *Local) Predict(ctx context.Context, states []match.State) ([]Prediction, error) {
	outs := l.svc.PredictBatch(ctx, states)
	preds := make([]Prediction, len(outs))
	for i, o := range outs {
		if o.OK() {
			preds[i] = Prediction{
				BattingWinProbability: o.Result.BattingWinProbability,
				BowlingWinProbability: o.Result.BowlingWinProbability,
			}
			continue
		}
		preds[i] = Prediction{Error: o.Message()}
	}
	return preds, nil
}

// Remote posts each state to a running service's /predict endpoint.
type Remote struct {
	client  *retryablehttp.Client
	url     string
	workers int
}

// NewRemote builds a client for baseURL with workers concurrent requests.
func NewRemote(baseURL string, timeout time.Duration, retries, workers int) *Remote {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = retries
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = timeout
	if workers < 1 {
		workers = 1
	}
	return &Remote{
		client:  client,
		url:     strings.TrimRight(baseURL, "/") + "/predict",
		workers: workers,
	}
}

// Predict implements Predictor. A transport failure aborts the replay since
// the service answers 200 for every domain failure.
func (r *Remote) Predict(ctx context.Context, states []match.State) ([]Prediction, error) {
	preds := make([]Prediction, len(states))
	jobs := make(chan int, r.workers*2)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				p, err := r.post(ctx, states[idx])
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				preds[idx] = p
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range states {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return preds, nil
}

func (r *Remote) post(ctx context.Context, st match.State) (Prediction, error) {
	body, err := json.Marshal(st)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("%w: status %d: %s", ErrRequest, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var p Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return Prediction{}, fmt.Errorf("%w: decode: %w", ErrRequest, err)
	}
	return p, nil
}
