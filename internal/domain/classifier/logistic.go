package classifier

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/okian/winprob/internal/domain/match"
)

// Feature column names as written in model artifacts.
const (
	FeatureBattingTeam = "batting_team"
	FeatureBowlingTeam = "bowling_team"
	FeatureCity        = "city"
	FeatureRunsLeft    = "runs_left"
	FeatureBallsLeft   = "balls_left"
	FeatureWickets     = "wickets"
	FeatureTotalRunsX  = "total_runs_x"
	FeatureCurrentRate = "current_rate"
	FeatureRRR         = "rrr"
)

var numericFeatures = map[string]func(match.Features) float64{ //nolint:gochecknoglobals // immutable column table
	FeatureRunsLeft:    func(f match.Features) float64 { return float64(f.RunsLeft) },
	FeatureBallsLeft:   func(f match.Features) float64 { return float64(f.BallsLeft) },
	FeatureWickets:     func(f match.Features) float64 { return float64(f.Wickets) },
	FeatureTotalRunsX:  func(f match.Features) float64 { return float64(f.TotalRunsX) },
	FeatureCurrentRate: func(f match.Features) float64 { return f.CurrentRate },
	FeatureRRR:         func(f match.Features) float64 { return f.RequiredRunRate },
}

var categoricalFeatures = map[string]func(match.Features) string{ //nolint:gochecknoglobals // immutable column table
	FeatureBattingTeam: func(f match.Features) string { return f.BattingTeam },
	FeatureBowlingTeam: func(f match.Features) string { return f.BowlingTeam },
	FeatureCity:        func(f match.Features) string { return f.City },
}

// Artifact is the serialized form of a fitted logistic regression:
// standard-scaled numeric columns and one-hot categorical columns. The
// decision value is the log-odds of the batting side winning.
type Artifact struct {
	Name        string                        `yaml:"name" json:"name"`
	Version     string                        `yaml:"version" json:"version"`
	Intercept   float64                       `yaml:"intercept" json:"intercept"`
	Numeric     map[string]NumericTerm        `yaml:"numeric" json:"numeric"`
	Categorical map[string]map[string]float64 `yaml:"categorical" json:"categorical"`
}

// NumericTerm holds the scaler parameters and coefficient of one column.
type NumericTerm struct {
	Mean   float64 `yaml:"mean" json:"mean"`
	Scale  float64 `yaml:"scale" json:"scale"`
	Weight float64 `yaml:"weight" json:"weight"`
}

type numericTerm struct {
	value func(match.Features) float64
	NumericTerm
}

type categoricalTerm struct {
	value   func(match.Features) string
	weights map[string]float64
}

// Logistic is an in-process logistic regression classifier. It is
// immutable after construction.
type Logistic struct {
	name        string
	version     string
	intercept   float64
	numeric     []numericTerm
	categorical []categoricalTerm
}

// LoadLogistic reads an artifact from path. JSON artifacts are accepted as
// well since they are valid YAML.
func LoadLogistic(path string) (*Logistic, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied model path
	if err != nil {
		return nil, fmt.Errorf("read model artifact %s: %w", path, err)
	}
	return ParseLogistic(data)
}

// ParseLogistic decodes an artifact document.
func ParseLogistic(data []byte) (*Logistic, error) {
	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	return NewLogistic(a)
}

// NewLogistic validates a and builds the classifier.
func NewLogistic(a Artifact) (*Logistic, error) {
	if len(a.Numeric) == 0 && len(a.Categorical) == 0 {
		return nil, fmt.Errorf("%w: no coefficients", ErrInvalidArtifact)
	}
	if !isFinite(a.Intercept) {
		return nil, fmt.Errorf("%w: intercept is not finite", ErrInvalidArtifact)
	}

	m := &Logistic{
		name:      a.Name,
		version:   a.Version,
		intercept: a.Intercept,
	}

	for _, name := range sortedKeys(a.Numeric) {
		value, ok := numericFeatures[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
		term := a.Numeric[name]
		if term.Scale == 0 {
			term.Scale = 1
		}
		if !isFinite(term.Mean) || !isFinite(term.Scale) || !isFinite(term.Weight) {
			return nil, fmt.Errorf("%w: %s has non-finite parameters", ErrInvalidArtifact, name)
		}
		m.numeric = append(m.numeric, numericTerm{value: value, NumericTerm: term})
	}

	for _, name := range sortedKeys(a.Categorical) {
		value, ok := categoricalFeatures[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
		weights := make(map[string]float64, len(a.Categorical[name]))
		for category, w := range a.Categorical[name] {
			if !isFinite(w) {
				return nil, fmt.Errorf("%w: %s=%s weight is not finite", ErrInvalidArtifact, name, category)
			}
			weights[category] = w
		}
		m.categorical = append(m.categorical, categoricalTerm{value: value, weights: weights})
	}

	return m, nil
}

// Name returns the artifact name.
func (m *Logistic) Name() string { return m.name }

// Version returns the artifact version.
func (m *Logistic) Version() string { return m.version }

// PredictProbability implements Classifier. Categories missing from the
// artifact contribute nothing to the decision value.
func (m *Logistic) PredictProbability(ctx context.Context, f match.Features) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	z := m.intercept
	for _, t := range m.numeric {
		z += t.Weight * (t.value(f) - t.Mean) / t.Scale
	}
	for _, t := range m.categorical {
		z += t.weights[t.value(f)]
	}

	p := sigmoid(z)
	probs := make([]float64, NumClasses)
	probs[ClassBowlingWins] = 1 - p
	probs[ClassBattingWins] = p
	return probs, nil
}

// HealthCheck implements HealthChecker. A constructed model is always ready.
func (m *Logistic) HealthCheck(_ context.Context) error {
	if m == nil {
		return ErrNotLoaded
	}
	return nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
