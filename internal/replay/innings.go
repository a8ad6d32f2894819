package replay

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/winprob/internal/domain/match"
)

// Innings is a recorded second innings: the fixed context plus the score at
// successive points of the chase.
type Innings struct {
	Name        string     `yaml:"name" json:"name"`
	BattingTeam string     `yaml:"batting_team" json:"batting_team"`
	BowlingTeam string     `yaml:"bowling_team" json:"bowling_team"`
	City        string     `yaml:"city" json:"city"`
	Target      int        `yaml:"target" json:"target"`
	Timeline    []Snapshot `yaml:"timeline" json:"timeline"`
}

// Snapshot is the chase state at one point in time.
type Snapshot struct {
	Label       string  `yaml:"label,omitempty" json:"label,omitempty"`
	CurrentRuns int     `yaml:"current_runs" json:"current_runs"`
	OversLeft   float64 `yaml:"overs_left" json:"overs_left"`
	WicketsLeft int     `yaml:"wickets_left" json:"wickets_left"`
}

// LoadInnings reads and validates an innings file.
func LoadInnings(path string) (*Innings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read innings %s: %w", path, err)
	}
	inn, err := ParseInnings(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inn, nil
}

// ParseInnings decodes and validates an innings document.
func ParseInnings(data []byte) (*Innings, error) {
	var inn Innings
	if err := yaml.Unmarshal(data, &inn); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInnings, err)
	}
	if err := inn.Validate(); err != nil {
		return nil, err
	}
	return &inn, nil
}

// Validate checks the fixed context and every snapshot.
func (inn *Innings) Validate() error {
	switch {
	case inn.BattingTeam == "":
		return fmt.Errorf("%w: missing batting_team", ErrInvalidInnings)
	case inn.BowlingTeam == "":
		return fmt.Errorf("%w: missing bowling_team", ErrInvalidInnings)
	case inn.City == "":
		return fmt.Errorf("%w: missing city", ErrInvalidInnings)
	case inn.Target < 1:
		return fmt.Errorf("%w: target must be positive", ErrInvalidInnings)
	case len(inn.Timeline) == 0:
		return fmt.Errorf("%w: empty timeline", ErrInvalidInnings)
	}
	for i, s := range inn.Timeline {
		if math.IsNaN(s.OversLeft) || math.IsInf(s.OversLeft, 0) {
			return fmt.Errorf("%w: timeline[%d] overs_left is not a number", ErrInvalidInnings, i)
		}
		if s.CurrentRuns < 0 || s.OversLeft < 0 || s.OversLeft > match.InningsOvers ||
			s.WicketsLeft < 0 || s.WicketsLeft > 10 {
			return fmt.Errorf("%w: timeline[%d] out of range", ErrInvalidInnings, i)
		}
	}
	return nil
}

// States expands the timeline into match states.
func (inn *Innings) States() []match.State {
	out := make([]match.State, len(inn.Timeline))
	for i, s := range inn.Timeline {
		out[i] = match.State{
			BattingTeam: inn.BattingTeam,
			BowlingTeam: inn.BowlingTeam,
			City:        inn.City,
			TotalRunsX:  inn.Target,
			CurrentRuns: s.CurrentRuns,
			OversLeft:   s.OversLeft,
			WicketsLeft: s.WicketsLeft,
		}
	}
	return out
}

// label returns the snapshot label or one derived from the overs bowled.
func (s Snapshot) label() string {
	if s.Label != "" {
		return s.Label
	}
	bowled := match.InningsOvers*match.BallsPerOver - match.OversToBalls(s.OversLeft)
	return fmt.Sprintf("%d.%d", bowled/match.BallsPerOver, bowled%match.BallsPerOver)
}
