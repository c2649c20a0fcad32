// internal/store/store.go
//
// Persistence contracts shared by every backend.
//
// Backends:
//   - memory:   maps behind a RWMutex; default for development and tests.
//   - sqlite:   single-file database with embedded goose migrations.
//   - postgres: pgx pool with the same schema.
//   - redis:    live game sessions only (SessionStore).
//
// Implementations return ErrNotFound for missing rows and
// ErrAlreadyRecorded when a player already has a result for the day.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/robalobadob/rankedle/internal/game"
	"github.com/robalobadob/rankedle/internal/rating"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyRecorded = errors.New("game already recorded for this day")
	ErrUsernameTaken   = errors.New("username taken")
)

// Limits applied when callers pass a non-positive limit.
const (
	DefaultRecentLimit = 50
	DefaultDailyLimit  = 20
)

// GameRecord is the durable result of one completed daily game.
type GameRecord struct {
	ID           string    `json:"id"`
	PlayerID     string    `json:"playerId"`
	Day          string    `json:"date"`
	Won          bool      `json:"success"`
	Attempts     int       `json:"attempts"`
	Guesses      []string  `json:"guesses"`
	RatingChange int       `json:"ratingChange"`
	PointsEarned int       `json:"pointsEarned"`
	CompletedAt  time.Time `json:"completedAt"`
}

// LeaderboardEntry is one row of the rating-ordered leaderboard.
type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	Username    string `json:"username"`
	Rating      int    `json:"rating"`
	Score       int    `json:"score"`
	GamesPlayed int    `json:"gamesPlayed"`
	GamesWon    int    `json:"gamesWon"`
	InPlacement bool   `json:"isInPlacementPhase"`
	Position    int    `json:"position"`
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PlayerStatsRepository persists rating state and daily results.
type PlayerStatsRepository interface {
	// LoadRatingState returns ErrNotFound for players without a record.
	LoadRatingState(ctx context.Context, playerID string) (rating.State, error)
	SaveRatingState(ctx context.Context, playerID string, st rating.State) error
	HasPlayedToday(ctx context.Context, playerID, day string) (bool, error)
	// CompleteGame stores rec and st atomically. It returns
	// ErrAlreadyRecorded, storing nothing, if the day was already recorded.
	CompleteGame(ctx context.Context, rec GameRecord, st rating.State) error
	GameForDay(ctx context.Context, playerID, day string) (*GameRecord, error)
	RecentGames(ctx context.Context, playerID string, limit int) ([]GameRecord, error)
	// DailyLeaderboard lists the day's wins, fewest attempts first, then earliest.
	DailyLeaderboard(ctx context.Context, day string, limit int) ([]GameRecord, error)
	// Leaderboard is ordered by rating desc; ties keep a stable order.
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	// Position is 1 + the number of players with a strictly higher rating.
	Position(ctx context.Context, playerID string) (int, error)
}

// SessionStore keeps in-progress (and just-finished) daily sessions.
type SessionStore interface {
	SaveSession(ctx context.Context, s *game.Session) error
	GetSession(ctx context.Context, id string) (*game.Session, error)
	FindSession(ctx context.Context, playerID, day string) (*game.Session, error)
}

// UserStore manages accounts.
type UserStore interface {
	// CreateUser returns ErrUsernameTaken on a case-insensitive clash.
	CreateUser(ctx context.Context, u User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
}
