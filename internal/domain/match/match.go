// Package match models the state of a T20 run chase and derives the
// feature vector the win-probability classifier was trained on.
package match

// Innings shape of the format the classifier was trained on.
const (
	InningsOvers   = 20
	BallsPerOver   = 6
	MaxBallsInOver = BallsPerOver - 1
)

// State is the raw match state of the chasing side at one point in the
// innings. CurrentRuns <= TotalRunsX is expected but not enforced.
type State struct {
	BattingTeam string  `json:"batting_team" yaml:"batting_team"`
	BowlingTeam string  `json:"bowling_team" yaml:"bowling_team"`
	City        string  `json:"city" yaml:"city"`
	TotalRunsX  int     `json:"total_runs_x" yaml:"total_runs_x"`
	CurrentRuns int     `json:"current_runs" yaml:"current_runs"`
	OversLeft   float64 `json:"overs_left" yaml:"overs_left"`
	WicketsLeft int     `json:"wickets_left" yaml:"wickets_left"`
}

// Features is the classifier input. Field names on the wire match the
// training columns.
type Features struct {
	BattingTeam     string  `json:"batting_team"`
	BowlingTeam     string  `json:"bowling_team"`
	City            string  `json:"city"`
	RunsLeft        int     `json:"runs_left"`
	BallsLeft       int     `json:"balls_left"`
	Wickets         int     `json:"wickets"`
	TotalRunsX      int     `json:"total_runs_x"`
	CurrentRate     float64 `json:"current_rate"`
	RequiredRunRate float64 `json:"rrr"`
}
