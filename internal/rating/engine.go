package rating

import "time"

// Points awarded for a win by attempts; losses earn nothing.
var winPoints = [7]int{0, 100, 80, 60, 40, 20, 10}

const (
	streakBonusPerGame = 5
	streakBonusCap     = 50
)

// Engine applies a Formula to player state.
type Engine struct {
	formula Formula
}

// NewEngine returns an engine using f, or the table formula when f is nil.
func NewEngine(f Formula) *Engine {
	if f == nil {
		f = TableFormula{}
	}
	return &Engine{formula: f}
}

// Formula reports the configured formula.
func (e *Engine) Formula() Formula { return e.formula }

// ComputeDelta returns the rating change for an outcome, clamped so that
// current+delta is never negative.
func (e *Engine) ComputeDelta(o Outcome, current int, p Phase) int {
	if current < 0 {
		current = 0
	}
	delta := e.formula.Delta(o, current, p)
	if current+delta < 0 {
		delta = -current
	}
	return delta
}

// Update summarizes one Apply call.
type Update struct {
	RatingChange int   `json:"ratingChange"`
	PointsEarned int   `json:"pointsEarned"`
	Before       State `json:"before"`
	After        State `json:"after"`
}

// Points returns score points for an outcome given the streak held before
// the game: win points by attempts plus 5 per streak game, capped at 50.
func Points(o Outcome, priorStreak int) int {
	if !o.Won {
		return 0
	}
	pts := 0
	if o.Attempts >= 1 && o.Attempts <= 6 {
		pts = winPoints[o.Attempts]
	}
	return pts + min(streakBonusCap, priorStreak*streakBonusPerGame)
}

// Apply mutates st for one completed game played at the given time.
// It must be called exactly once per game.
func (e *Engine) Apply(st *State, o Outcome, at time.Time) Update {
	before := *st

	delta := e.ComputeDelta(o, st.Rating, st.Phase())
	st.Rating += delta
	if st.Rating < 0 {
		st.Rating = 0
	}

	points := Points(o, before.CurrentStreak)
	st.Score += points

	st.GamesPlayed++
	if o.Won {
		st.GamesWon++
		st.CurrentStreak++
		if o.Attempts >= 1 && o.Attempts <= len(st.Distribution) {
			st.Distribution[o.Attempts-1]++
		}
	} else {
		st.CurrentStreak = 0
	}
	st.MaxStreak = max(st.MaxStreak, st.CurrentStreak)

	if st.InPlacement {
		st.PlacementMatches = min(PlacementGames, st.PlacementMatches+1)
		st.InPlacement = st.PlacementMatches < PlacementGames
	}
	st.LastPlayed = at

	return Update{
		RatingChange: st.Rating - before.Rating,
		PointsEarned: points,
		Before:       before,
		After:        *st,
	}
}
