// Package rating computes per-game rating changes and applies them to a
// player's persistent state.
//
// Two formulas are available and selected per deployment:
//   - "table":    fixed deltas by attempts, damped at higher ratings (default).
//   - "logistic": Elo-style expected score against a fixed 1400 pivot.
//
// Both share the placement table used for a player's first ten games.
package rating

import (
	"fmt"
	"math"
	"strings"
)

// Outcome of one completed game. Attempts is in [1,6] for wins.
type Outcome struct {
	Won      bool
	Attempts int
}

// Phase tells the formula whether the game is a placement match.
// MatchIndex is the 0-based number of placement games already completed.
type Phase struct {
	Placement  bool
	MatchIndex int
}

// Formula returns the raw delta for an outcome. The Engine clamps it so
// the rating never drops below zero.
type Formula interface {
	Name() string
	Delta(o Outcome, current int, p Phase) int
}

// FormulaByName resolves "table" or "logistic".
func FormulaByName(name string) (Formula, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "table":
		return TableFormula{}, nil
	case "logistic", "elo":
		return LogisticFormula{}, nil
	}
	return nil, fmt.Errorf("rating: unknown formula %q", name)
}

// ---------------------------------------------------------------------------
// table

var (
	normalWinBase    = [7]float64{0, 50, 40, 30, 20, 15, 10}
	placementWinBase = [7]float64{0, 120, 100, 80, 60, 40, 20}
)

const (
	normalLoss      = -25
	normalWinFloor  = 10
	placementLoss   = -60
	placementFloor  = 20
	placementDecay  = 0.05
	placementMinMul = 0.5
)

// TableFormula uses fixed base values, damped by the current rating.
type TableFormula struct{}

func (TableFormula) Name() string { return "table" }

func (TableFormula) Delta(o Outcome, current int, p Phase) int {
	if p.Placement {
		return placementDelta(o, p.MatchIndex)
	}
	base := float64(normalLoss)
	if o.Won {
		base = winBase(normalWinBase, o.Attempts, normalWinFloor)
	}
	return int(math.Floor(base * damping(current)))
}

// damping shrinks changes for higher-rated players.
func damping(current int) float64 {
	switch {
	case current > 2000:
		return 0.5
	case current > 1600:
		return 0.7
	case current > 1200:
		return 0.85
	}
	return 1.0
}

// placementDelta is larger early on and decays by 5% per match, never below half.
func placementDelta(o Outcome, matchIndex int) int {
	base := float64(placementLoss)
	if o.Won {
		base = winBase(placementWinBase, o.Attempts, placementFloor)
	}
	mul := math.Max(placementMinMul, 1-float64(matchIndex)*placementDecay)
	return int(math.Floor(base * mul))
}

func winBase(table [7]float64, attempts int, fallback float64) float64 {
	if attempts >= 1 && attempts <= 6 {
		return table[attempts]
	}
	return fallback
}

// ---------------------------------------------------------------------------
// logistic

const (
	logisticK     = 32
	logisticPivot = 1400
)

var logisticBonus = [7]float64{0, 2.5, 2.0, 1.7, 1.3, 1.1, 1.0}

// LogisticFormula is an Elo update against a fixed-difficulty opponent,
// scaled up for wins in few attempts.
type LogisticFormula struct{}

func (LogisticFormula) Name() string { return "logistic" }

func (LogisticFormula) Delta(o Outcome, current int, p Phase) int {
	if p.Placement {
		return placementDelta(o, p.MatchIndex)
	}
	r := float64(current)
	expected := 1 / (1 + math.Pow(10, (logisticPivot-r)/400))

	actual, bonus := 0.0, 1.0
	if o.Won {
		actual = 1
		bonus = winBase(logisticBonus, o.Attempts, 1.0)
		switch {
		case current >= 2400:
			bonus += 0.3
		case current >= 2000:
			bonus += 0.2
		}
	}
	return roundHalfUp(logisticK * (actual - expected) * bonus)
}

// roundHalfUp rounds .5 toward +Inf, so -2.5 becomes -2 (math.Round gives -3).
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
