// Package repository journals prediction outcomes for later inspection.
package repository

import (
	"context"
	"time"

	"github.com/okian/winprob/internal/domain/match"
	"github.com/okian/winprob/internal/domain/prediction"
)

// Record is one journaled prediction.
type Record struct {
	ID        string             `json:"id"`
	At        time.Time          `json:"at"`
	RequestID string             `json:"request_id,omitempty"`
	State     match.State        `json:"state"`
	Features  *match.Features    `json:"features,omitempty"`
	Outcome   string             `json:"outcome"`
	Result    *prediction.Result `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	LatencyMs float64            `json:"latency_ms"`
}

// NewRecord builds a Record from a finished prediction.
func NewRecord(requestID string, s match.State, out prediction.Outcome, latency time.Duration) Record {
	r := Record{
		RequestID: requestID,
		State:     s,
		Features:  out.Features,
		Outcome:   out.Kind.String(),
		Error:     out.Message(),
		LatencyMs: float64(latency.Microseconds()) / 1000,
	}
	if out.OK() {
		res := out.Result
		r.Result = &res
	}
	return r
}

// Store provides append-only access to the prediction journal.
type Store interface {
	// Append stores r, assigning ID and At when empty, and returns the stored record.
	Append(ctx context.Context, r Record) (Record, error)

	// Recent returns up to n records, newest first.
	// Returns ErrInvalidLimit if n < 1.
	Recent(ctx context.Context, n int) ([]Record, error)

	// Count returns the number of records currently held.
	Count(ctx context.Context) int

	// Close releases the underlying resources.
	Close() error
}
