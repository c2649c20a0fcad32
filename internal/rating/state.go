package rating

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultRating is assigned to players on their first game.
	DefaultRating = 1200
	// PlacementGames is the number of games played under the placement table.
	PlacementGames = 10
)

// State is a player's persistent rating record.
//
// Invariants: Rating >= 0, MaxStreak >= CurrentStreak,
// 0 <= PlacementMatches <= PlacementGames, and InPlacement is true exactly
// while PlacementMatches < PlacementGames.
type State struct {
	Rating           int       `json:"rating"`
	Score            int       `json:"score"`
	GamesPlayed      int       `json:"gamesPlayed"`
	GamesWon         int       `json:"gamesWon"`
	CurrentStreak    int       `json:"currentStreak"`
	MaxStreak        int       `json:"maxStreak"`
	PlacementMatches int       `json:"placementMatchesCompleted"`
	InPlacement      bool      `json:"isInPlacementPhase"`
	Distribution     [6]int    `json:"distribution"` // wins by attempts 1..6
	LastPlayed       time.Time `json:"lastPlayed,omitempty"`
}

// NewState returns the record for a player who has not played yet.
func NewState() State {
	return State{Rating: DefaultRating, InPlacement: true}
}

// Phase derives the formula phase from the placement counters.
func (s State) Phase() Phase {
	return Phase{Placement: s.InPlacement, MatchIndex: s.PlacementMatches}
}

// WinRate is wins/played as a rounded percentage.
func (s State) WinRate() int {
	if s.GamesPlayed == 0 {
		return 0
	}
	return roundHalfUp(float64(s.GamesWon) / float64(s.GamesPlayed) * 100)
}

// FormatDistribution encodes a distribution as "a,b,c,d,e,f".
func FormatDistribution(d [6]int) string {
	parts := make([]string, len(d))
	for i, n := range d {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// ParseDistribution decodes FormatDistribution's output. Empty input is all zeros.
func ParseDistribution(s string) ([6]int, error) {
	var d [6]int
	if strings.TrimSpace(s) == "" {
		return d, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != len(d) {
		return d, fmt.Errorf("rating: distribution %q: want %d fields, got %d", s, len(d), len(parts))
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return d, fmt.Errorf("rating: distribution %q: %w", s, err)
		}
		d[i] = n
	}
	return d, nil
}
