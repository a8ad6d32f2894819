package match

import (
	"github.com/shopspring/decimal"
)

var ballsPerOver = decimal.NewFromInt(BallsPerOver) //nolint:gochecknoglobals // immutable constant

// OversToBalls converts cricket overs notation (N.b, b in 0..5) into a
// ball count. The tenths digit is rounded, not truncated, so 2.3 stored as
// 2.2999... still yields 14, and clamped to 5 so an invalid over such as
// 2.6 behaves as 2.5. overs must be finite.
func OversToBalls(overs float64) int {
	d := decimal.NewFromFloat(overs)
	whole := d.Floor()

	balls := d.Sub(whole).Shift(1).Round(0).IntPart()
	if balls > MaxBallsInOver {
		balls = MaxBallsInOver
	}

	return int(whole.Mul(ballsPerOver).IntPart() + balls)
}

// OversCompleted returns the overs already bowled in a 20-over innings,
// using the same N.b notation as OversLeft.
func OversCompleted(s State) float64 {
	return InningsOvers - s.OversLeft
}

// CurrentRate returns runs per completed over, or 0 before the first ball.
func CurrentRate(s State) float64 {
	completed := OversCompleted(s)
	if completed == 0 {
		return 0
	}
	return float64(s.CurrentRuns) / completed
}

// RequiredRunRate returns runs needed per over at the remaining ball count.
// It does not guard ballsLeft == 0; callers must.
func RequiredRunRate(runsLeft, ballsLeft int) float64 {
	return float64(runsLeft) / (float64(ballsLeft) / BallsPerOver)
}

// Derive builds the classifier feature vector for s. It is pure: degenerate
// states (no balls left) produce non-finite rates instead of errors.
func Derive(s State) Features {
	runsLeft := s.TotalRunsX - s.CurrentRuns
	ballsLeft := OversToBalls(s.OversLeft)

	return Features{
		BattingTeam:     s.BattingTeam,
		BowlingTeam:     s.BowlingTeam,
		City:            s.City,
		RunsLeft:        runsLeft,
		BallsLeft:       ballsLeft,
		Wickets:         s.WicketsLeft,
		TotalRunsX:      s.TotalRunsX,
		CurrentRate:     CurrentRate(s),
		RequiredRunRate: RequiredRunRate(runsLeft, ballsLeft),
	}
}
