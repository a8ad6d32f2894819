// Package replay evaluates a recorded innings point by point and renders the
// resulting win-probability worm.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/okian/winprob/internal/domain/match"
	"github.com/okian/winprob/pkg/logger"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

const barWidth = 40

// Point is one evaluated snapshot of the worm.
type Point struct {
	Label       string   `json:"label"`
	CurrentRuns int      `json:"current_runs"`
	RunsLeft    int      `json:"runs_left"`
	BallsLeft   int      `json:"balls_left"`
	WicketsLeft int      `json:"wickets_left"`
	Batting     *float64 `json:"batting_win_probability,omitempty"`
	Bowling     *float64 `json:"bowling_win_probability,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Worm is a replayed innings.
type Worm struct {
	Innings  string        `json:"innings"`
	Batting  string        `json:"batting_team"`
	Bowling  string        `json:"bowling_team"`
	Target   int           `json:"target"`
	Points   []Point       `json:"points"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}

// Run evaluates every snapshot of inn with p.
func Run(ctx context.Context, inn *Innings, p Predictor, log logger.Logger) (*Worm, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := inn.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	states := inn.States()

	log.Info(ctx, "replaying innings",
		logger.String("innings", inn.Name),
		logger.Int("snapshots", len(states)),
	)

	preds, err := p.Predict(ctx, states)
	if err != nil {
		return nil, err
	}
	if len(preds) != len(states) {
		return nil, fmt.Errorf("%w: got %d predictions for %d states", ErrRequest, len(preds), len(states))
	}

	worm := &Worm{
		Innings: inn.Name,
		Batting: inn.BattingTeam,
		Bowling: inn.BowlingTeam,
		Target:  inn.Target,
		Points:  make([]Point, len(states)),
	}
	for i, st := range states {
		f := match.Derive(st)
		pt := Point{
			Label:       inn.Timeline[i].label(),
			CurrentRuns: st.CurrentRuns,
			RunsLeft:    f.RunsLeft,
			BallsLeft:   f.BallsLeft,
			WicketsLeft: st.WicketsLeft,
		}
		if preds[i].Error != "" {
			pt.Error = preds[i].Error
			worm.Failed++
		} else {
			bat, bowl := preds[i].BattingWinProbability, preds[i].BowlingWinProbability
			pt.Batting, pt.Bowling = &bat, &bowl
		}
		worm.Points[i] = pt
	}
	worm.Duration = time.Since(start)

	log.Info(ctx, "replay complete",
		logger.Int("points", len(worm.Points)),
		logger.Int("failed", worm.Failed),
		logger.Duration("duration", worm.Duration),
	)
	return worm, nil
}

// Render writes worm to w as an aligned table with a bar per point, or JSON.
func Render(w io.Writer, worm *Worm, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(worm)
	case FormatTable, "":
		return renderTable(w, worm)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderTable(w io.Writer, worm *Worm) error {
	if _, err := fmt.Fprintf(w, "%s: %s chasing %d vs %s\n\n", worm.Innings, worm.Batting, worm.Target, worm.Bowling); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OVER\tSCORE\tNEED\tBALLS\tBAT%\tBOWL%\t")
	for _, p := range worm.Points {
		score := fmt.Sprintf("%d/%d", p.CurrentRuns, 10-p.WicketsLeft)
		if p.Error != "" {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t-\t-\t%s\n", p.Label, score, p.RunsLeft, p.BallsLeft, p.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.2f\t%.2f\t%s\n",
			p.Label, score, p.RunsLeft, p.BallsLeft, *p.Batting, *p.Bowling, bar(*p.Batting))
	}
	return tw.Flush()
}

// bar draws pct (0-100) as a fixed-width gauge.
func bar(pct float64) string {
	n := int(pct/100*barWidth + 0.5)
	if n < 0 {
		n = 0
	}
	if n > barWidth {
		n = barWidth
	}
	return "|" + strings.Repeat("#", n) + strings.Repeat(".", barWidth-n) + "|"
}
