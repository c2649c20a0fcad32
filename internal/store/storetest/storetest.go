// Package storetest holds a conformance suite run against every
// PlayerStatsRepository/UserStore backend.
package storetest

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/robalobadob/rankedle/internal/rating"
	"github.com/robalobadob/rankedle/internal/store"
)

// Backend is what a suite run needs from a store.
type Backend interface {
	store.PlayerStatsRepository
	store.UserStore
}

// RepositorySuite exercises a Backend. Set NewBackend before suite.Run;
// it is called once per test and must return an empty store.
type RepositorySuite struct {
	suite.Suite
	NewBackend func() Backend

	repo Backend
	ctx  context.Context
}

func (s *RepositorySuite) SetupTest() {
	s.repo = s.NewBackend()
	s.ctx = context.Background()
}

func (s *RepositorySuite) record(playerID, day string, won bool, attempts int) store.GameRecord {
	return store.GameRecord{
		ID:           fmt.Sprintf("%s-%s", playerID, day),
		PlayerID:     playerID,
		Day:          day,
		Won:          won,
		Attempts:     attempts,
		Guesses:      []string{"trace", "crane"}[:min(attempts, 2)],
		RatingChange: 40,
		PointsEarned: 80,
		CompletedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (s *RepositorySuite) addUser(id, name string) {
	s.Require().NoError(s.repo.CreateUser(s.ctx, store.User{
		ID:           id,
		Username:     name,
		PasswordHash: "hash",
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
}

func (s *RepositorySuite) TestLoadMissingState() {
	_, err := s.repo.LoadRatingState(s.ctx, "nobody")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *RepositorySuite) TestSaveAndLoadState() {
	s.addUser("p1", "alice")
	st := rating.NewState()
	st.Rating = 1340
	st.Score = 180
	st.GamesPlayed = 3
	st.GamesWon = 2
	st.CurrentStreak = 1
	st.MaxStreak = 2
	st.PlacementMatches = 3
	st.Distribution = [6]int{0, 1, 1, 0, 0, 0}
	st.LastPlayed = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.Require().NoError(s.repo.SaveRatingState(s.ctx, "p1", st))

	got, err := s.repo.LoadRatingState(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(st.Rating, got.Rating)
	s.Equal(st.Score, got.Score)
	s.Equal(st.GamesPlayed, got.GamesPlayed)
	s.Equal(st.GamesWon, got.GamesWon)
	s.Equal(st.CurrentStreak, got.CurrentStreak)
	s.Equal(st.MaxStreak, got.MaxStreak)
	s.Equal(st.PlacementMatches, got.PlacementMatches)
	s.True(got.InPlacement)
	s.Equal(st.Distribution, got.Distribution)
	s.True(st.LastPlayed.Equal(got.LastPlayed))

	st.Rating = 1300
	s.Require().NoError(s.repo.SaveRatingState(s.ctx, "p1", st))
	got, err = s.repo.LoadRatingState(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(1300, got.Rating)
}

func (s *RepositorySuite) TestCompleteGameOncePerDay() {
	s.addUser("p1", "alice")
	played, err := s.repo.HasPlayedToday(s.ctx, "p1", "2025-01-02")
	s.Require().NoError(err)
	s.False(played)

	st := rating.NewState()
	st.Rating = 1300
	s.Require().NoError(s.repo.CompleteGame(s.ctx, s.record("p1", "2025-01-02", true, 2), st))

	played, err = s.repo.HasPlayedToday(s.ctx, "p1", "2025-01-02")
	s.Require().NoError(err)
	s.True(played)

	st.Rating = 9999
	err = s.repo.CompleteGame(s.ctx, s.record("p1", "2025-01-02", false, 6), st)
	s.ErrorIs(err, store.ErrAlreadyRecorded)

	got, err := s.repo.LoadRatingState(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(1300, got.Rating, "rejected completion must not touch state")

	rec, err := s.repo.GameForDay(s.ctx, "p1", "2025-01-02")
	s.Require().NoError(err)
	s.True(rec.Won)
	s.Equal(2, rec.Attempts)
	s.Equal([]string{"trace", "crane"}, rec.Guesses)
	s.Equal(40, rec.RatingChange)
	s.Equal(80, rec.PointsEarned)

	_, err = s.repo.GameForDay(s.ctx, "p1", "2025-01-03")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *RepositorySuite) TestRecentGames() {
	s.addUser("p1", "alice")
	st := rating.NewState()
	for _, day := range []string{"2025-01-01", "2025-01-02", "2025-01-03"} {
		s.Require().NoError(s.repo.CompleteGame(s.ctx, s.record("p1", day, true, 3), st))
	}
	recs, err := s.repo.RecentGames(s.ctx, "p1", 2)
	s.Require().NoError(err)
	s.Require().Len(recs, 2)
	s.Equal("2025-01-03", recs[0].Day)
	s.Equal("2025-01-02", recs[1].Day)
}

func (s *RepositorySuite) TestLeaderboardAndPosition() {
	ratings := map[string]int{"a": 1500, "b": 1700, "c": 1500, "d": 900}
	for id, r := range ratings {
		s.addUser(id, "user_"+id)
		st := rating.NewState()
		st.Rating = r
		s.Require().NoError(s.repo.SaveRatingState(s.ctx, id, st))
	}

	lb, err := s.repo.Leaderboard(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(lb, 4)
	s.Equal("b", lb[0].PlayerID)
	s.Equal("user_b", lb[0].Username)
	s.Equal(1, lb[0].Position)
	s.Equal(2, lb[1].Position)
	s.Equal(2, lb[2].Position)
	s.Equal("d", lb[3].PlayerID)
	s.Equal(4, lb[3].Position)

	lb, err = s.repo.Leaderboard(s.ctx, 2)
	s.Require().NoError(err)
	s.Len(lb, 2)

	pos, err := s.repo.Position(s.ctx, "c")
	s.Require().NoError(err)
	s.Equal(2, pos)
	pos, err = s.repo.Position(s.ctx, "d")
	s.Require().NoError(err)
	s.Equal(4, pos)

	_, err = s.repo.Position(s.ctx, "zz")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *RepositorySuite) TestUsers() {
	s.addUser("u1", "Alice")

	err := s.repo.CreateUser(s.ctx, store.User{ID: "u2", Username: "alice", PasswordHash: "x", CreatedAt: time.Now()})
	s.ErrorIs(err, store.ErrUsernameTaken)

	u, err := s.repo.UserByUsername(s.ctx, "ALICE")
	s.Require().NoError(err)
	s.Equal("u1", u.ID)
	s.Equal("Alice", u.Username)
	s.Equal("hash", u.PasswordHash)

	u, err = s.repo.UserByID(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("Alice", u.Username)

	_, err = s.repo.UserByID(s.ctx, "missing")
	s.ErrorIs(err, store.ErrNotFound)
	_, err = s.repo.UserByUsername(s.ctx, "bob")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *RepositorySuite) TestDailyLeaderboard() {
	st := rating.NewState()
	base := time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)
	add := func(player string, won bool, attempts int, minutes int) {
		rec := s.record(player, "2025-01-02", won, attempts)
		rec.CompletedAt = base.Add(time.Duration(minutes) * time.Minute)
		s.Require().NoError(s.repo.CompleteGame(s.ctx, rec, st))
	}
	add("slow", true, 3, 30)
	add("fast", true, 3, 10)
	add("best", true, 2, 50)
	add("lost", false, 6, 5)
	s.Require().NoError(s.repo.CompleteGame(s.ctx, s.record("other", "2025-01-03", true, 1), st))

	top, err := s.repo.DailyLeaderboard(s.ctx, "2025-01-02", 10)
	s.Require().NoError(err)
	s.Require().Len(top, 3)
	s.Equal("best", top[0].PlayerID)
	s.Equal("fast", top[1].PlayerID)
	s.Equal("slow", top[2].PlayerID)

	top, err = s.repo.DailyLeaderboard(s.ctx, "2025-01-02", 1)
	s.Require().NoError(err)
	s.Len(top, 1)
}
