package ranked

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/rankedle/internal/rank"
	"github.com/robalobadob/rankedle/internal/rating"
	"github.com/robalobadob/rankedle/internal/store"
)

// Standing is a player's profile: stats, tier and leaderboard position.
type Standing struct {
	PlayerID string `json:"playerId"`
	rating.State
	WinRate            int           `json:"winRate"`
	Tier               rank.Tier     `json:"tier"`
	DisplayTier        rank.Tier     `json:"displayTier"`
	Progress           rank.Progress `json:"progress"`
	PlacementRemaining int           `json:"placementRemaining"`
	Position           int           `json:"position,omitempty"`
}

// Standing loads stats and position concurrently. Players who have never
// played get the default state and no position.
func (s *Service) Standing(ctx context.Context, playerID string) (*Standing, error) {
	var (
		st  rating.State
		pos int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		st, err = s.stats.LoadRatingState(gctx, playerID)
		if errors.Is(err, store.ErrNotFound) {
			st = rating.NewState()
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		pos, err = s.stats.Position(gctx, playerID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	v := s.value(st)
	tier := s.scheme.Classify(v)
	return &Standing{
		PlayerID:           playerID,
		State:              st,
		WinRate:            st.WinRate(),
		Tier:               tier,
		DisplayTier:        rank.Display(tier, st.InPlacement),
		Progress:           s.scheme.Progress(v),
		PlacementRemaining: rating.PlacementGames - st.PlacementMatches,
		Position:           pos,
	}, nil
}

// LeaderRow is a leaderboard entry with its tier.
type LeaderRow struct {
	store.LeaderboardEntry
	Tier        rank.Tier `json:"tier"`
	DisplayTier rank.Tier `json:"displayTier"`
}

// Leaderboard returns the top players by rating. limit <= 0 means the default.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderRow, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	entries, err := s.stats.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LeaderRow, 0, len(entries))
	for _, e := range entries {
		v := e.Rating
		if s.scheme.Basis == rank.BasisScore {
			v = e.Score
		}
		t := s.scheme.Classify(v)
		out = append(out, LeaderRow{LeaderboardEntry: e, Tier: t, DisplayTier: rank.Display(t, e.InPlacement)})
	}
	return out, nil
}

// DailyLeaderboard lists the fastest wins for day (today when empty).
func (s *Service) DailyLeaderboard(ctx context.Context, day string, limit int) ([]store.GameRecord, error) {
	if day == "" {
		day = s.Today()
	}
	return s.stats.DailyLeaderboard(ctx, day, limit)
}

// PlayedToday returns today's record, if any.
func (s *Service) PlayedToday(ctx context.Context, playerID string) (*store.GameRecord, error) {
	rec, err := s.stats.GameForDay(ctx, playerID, s.Today())
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// RecentGames returns the player's latest results, newest first.
func (s *Service) RecentGames(ctx context.Context, playerID string, limit int) ([]store.GameRecord, error) {
	return s.stats.RecentGames(ctx, playerID, limit)
}

// EnsurePlayer creates the default rating state for a new account.
func (s *Service) EnsurePlayer(ctx context.Context, playerID string) error {
	if _, err := s.stats.LoadRatingState(ctx, playerID); !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return s.stats.SaveRatingState(ctx, playerID, rating.NewState())
}
