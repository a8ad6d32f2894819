package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/winprob/internal/domain/match"
	"github.com/okian/winprob/internal/domain/prediction"
	"github.com/okian/winprob/pkg/logger"
)

const maxPredictBody = 1 << 20

// PredictDependencies defines the interface for prediction requests.
type PredictDependencies interface {
	Predict(ctx context.Context, st match.State) prediction.Outcome
}

// predictRequest mirrors the OpenAPI schema for POST /predict. Numbers are
// pointers so a missing field is told apart from zero.
type predictRequest struct {
	BattingTeam string   `json:"batting_team" validate:"required"`
	BowlingTeam string   `json:"bowling_team" validate:"required"`
	City        string   `json:"city" validate:"required"`
	TotalRunsX  *int     `json:"total_runs_x" validate:"required,gte=0"`
	CurrentRuns *int     `json:"current_runs" validate:"required,gte=0"`
	OversLeft   *float64 `json:"overs_left" validate:"required,gte=0,lte=20"`
	WicketsLeft *int     `json:"wickets_left" validate:"required,gte=0,lte=10"`

	// RunsLeft is accepted for compatibility and recomputed from the totals.
	RunsLeft *int `json:"runs_left,omitempty"`
}

func (p predictRequest) state() match.State {
	return match.State{
		BattingTeam: p.BattingTeam,
		BowlingTeam: p.BowlingTeam,
		City:        p.City,
		TotalRunsX:  *p.TotalRunsX,
		CurrentRuns: *p.CurrentRuns,
		OversLeft:   *p.OversLeft,
		WicketsLeft: *p.WicketsLeft,
	}
}

var requestValidator = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}()

func (p predictRequest) validate() error {
	err := requestValidator.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	// Report the first failing field only.
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return errors.New("missing " + field)
	case "gte":
		return errors.New(field + " must be at least " + fe.Param())
	case "lte":
		return errors.New(field + " must be at most " + fe.Param())
	default:
		return errors.New("invalid " + field)
	}
}

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps PredictDependencies
	log  logger.Logger
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies) *PredictHandler {
	return &PredictHandler{deps: deps, log: logger.Nop()}
}

// HandlePredict handles POST /predict. Every answer except a wrong method is
// a 200 carrying either the probabilities or {"error": ...}.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeMessage(w, http.StatusMethodNotAllowed, NewKind(op, ErrMethodNotAllowed).Error())
		return
	}

	var req predictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictBody))
	if err := dec.Decode(&req); err != nil {
		h.reject(r.Context(), w, WrapKind(op, ErrInvalidInput, err))
		return
	}
	if err := req.validate(); err != nil {
		h.reject(r.Context(), w, WrapKind(op, ErrInvalidInput, err))
		return
	}

	out := h.deps.Predict(r.Context(), req.state())
	if !out.OK() {
		writeMessage(w, http.StatusOK, out.Message())
		return
	}
	writeJSON(w, http.StatusOK, out.Result)
}

func (h *PredictHandler) reject(ctx context.Context, w http.ResponseWriter, err error) {
	h.log.Debug(ctx, "rejected prediction request", logger.Error(err))
	writeMessage(w, http.StatusOK, err.Error())
}
