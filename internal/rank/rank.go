// Package rank maps a numeric value (score or rating) onto named tiers.
//
// Two schemes exist and are never merged: ScoreScheme classifies accumulated
// points, RatingScheme classifies the Elo-like rating. A deployment picks one.
// Tier order is defined per scheme; Diamond sits below Platinum in the rating
// scheme and above it in the score scheme.
package rank

import (
	"fmt"
	"strings"
)

// Tier is a rank name.
type Tier string

const (
	Unranked     Tier = "Unranked"
	Bronze       Tier = "Bronze"
	Silver       Tier = "Silver"
	Gold         Tier = "Gold"
	Platinum     Tier = "Platinum"
	Diamond      Tier = "Diamond"
	Champion     Tier = "Champion"
	ArchChampion Tier = "Arch-Champion"
)

// Basis names the player value a scheme is applied to.
type Basis string

const (
	BasisScore  Basis = "score"
	BasisRating Basis = "rating"
)

// Threshold is the inclusive lower bound of a tier.
type Threshold struct {
	Tier Tier `json:"tier"`
	Min  int  `json:"min"`
}

// Classifier maps a value to a tier.
type Classifier interface {
	Classify(value int) Tier
}

// Scheme is an ascending list of thresholds; the first one is the floor
// for every lower value and the last one is open-ended.
type Scheme struct {
	Basis      Basis
	Thresholds []Threshold
}

// ScoreScheme classifies accumulated points.
var ScoreScheme = Scheme{
	Basis: BasisScore,
	Thresholds: []Threshold{
		{Bronze, 0},
		{Silver, 500},
		{Gold, 1000},
		{Platinum, 1500},
		{Diamond, 2000},
		{Champion, 2500},
	},
}

// RatingScheme classifies the rating.
var RatingScheme = Scheme{
	Basis: BasisRating,
	Thresholds: []Threshold{
		{Bronze, 0},
		{Silver, 1000},
		{Gold, 1300},
		{Diamond, 1600},
		{Platinum, 1900},
		{Champion, 2200},
		{ArchChampion, 2500},
	},
}

// SchemeByName resolves "score" or "rating".
func SchemeByName(name string) (Scheme, error) {
	switch Basis(strings.ToLower(strings.TrimSpace(name))) {
	case BasisScore:
		return ScoreScheme, nil
	case BasisRating, "":
		return RatingScheme, nil
	}
	return Scheme{}, fmt.Errorf("rank: unknown scheme %q", name)
}

// Classify returns the highest tier whose threshold is <= value.
// Values below the first threshold map to the first tier.
func (s Scheme) Classify(value int) Tier {
	return s.Thresholds[s.position(value)].Tier
}

func (s Scheme) position(value int) int {
	pos := 0
	for i, th := range s.Thresholds {
		if value >= th.Min {
			pos = i
		}
	}
	return pos
}

// Index is the tier's position within the scheme, or -1.
func (s Scheme) Index(t Tier) int {
	for i, th := range s.Thresholds {
		if th.Tier == t {
			return i
		}
	}
	return -1
}

// Progress describes where a value sits between its tier and the next.
type Progress struct {
	Tier      Tier `json:"tier"`
	Next      Tier `json:"next,omitempty"`
	NextMin   int  `json:"nextMin,omitempty"`
	Remaining int  `json:"remaining"`
	Percent   int  `json:"percent"`
}

// Progress reports the current tier, the next one and the distance to it.
// At the top tier Next is empty and Percent is 100.
func (s Scheme) Progress(value int) Progress {
	i := s.position(value)
	cur := s.Thresholds[i]
	p := Progress{Tier: cur.Tier}
	if i == len(s.Thresholds)-1 {
		p.Percent = 100
		return p
	}
	next := s.Thresholds[i+1]
	p.Next = next.Tier
	p.NextMin = next.Min
	p.Remaining = next.Min - value
	if value > cur.Min {
		p.Percent = (value - cur.Min) * 100 / (next.Min - cur.Min)
	}
	return p
}

// Display is the label shown to players; still-placing players are Unranked.
func Display(t Tier, inPlacement bool) Tier {
	if inPlacement {
		return Unranked
	}
	return t
}
