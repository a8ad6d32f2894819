package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/winprob/internal/adapters/repository"
)

const (
	defaultJournalLimit    = 10
	defaultMaxJournalLimit = 100
)

// PredictionsDependencies defines the interface for journal reads.
type PredictionsDependencies interface {
	Recent(ctx context.Context, n int) ([]repository.Record, error)
}

// PredictionsHandler serves the prediction journal.
type PredictionsHandler struct {
	deps     PredictionsDependencies
	maxLimit int
}

// NewPredictionsHandler creates a new predictions handler.
func NewPredictionsHandler(deps PredictionsDependencies, maxLimit int) *PredictionsHandler {
	return &PredictionsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetPredictions handles GET /predictions?limit=N. Records are newest
// first; limit defaults to 10 and is capped at the configured maximum.
func (h *PredictionsHandler) HandleGetPredictions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_predictions"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := defaultJournalLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if n > h.maxLimit {
		n = h.maxLimit
	}
	records, err := h.deps.Recent(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "journal_unavailable", WrapKind(op, ErrJournal, err))
		return
	}
	writeJSON(w, http.StatusOK, records)
}
