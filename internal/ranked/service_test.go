package ranked

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/rankedle/internal/events"
	"github.com/robalobadob/rankedle/internal/game"
	"github.com/robalobadob/rankedle/internal/rank"
	"github.com/robalobadob/rankedle/internal/rating"
	"github.com/robalobadob/rankedle/internal/store"
)

type fixedWords struct {
	target  string
	allowed map[string]bool
}

func (f fixedWords) DailyTarget(time.Time) string { return f.target }
func (f fixedWords) IsAllowed(w string) bool      { return f.allowed[w] }

// countingStats counts completions and can fail the first ones.
type countingStats struct {
	store.PlayerStatsRepository
	completions int
	failNext    int
}

func (c *countingStats) CompleteGame(ctx context.Context, rec store.GameRecord, st rating.State) error {
	if c.failNext > 0 {
		c.failNext--
		return errors.New("disk full")
	}
	c.completions++
	return c.PlayerStatsRepository.CompleteGame(ctx, rec, st)
}

type fixture struct {
	svc      *Service
	mem      *store.Memory
	stats    *countingStats
	recorder *events.Recorder
	now      time.Time
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		mem:      store.NewMemoryStore(),
		recorder: &events.Recorder{},
		now:      time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	}
	f.stats = &countingStats{PlayerStatsRepository: f.mem}
	ids := 0
	opts := Options{
		Stats:     f.stats,
		Sessions:  f.mem,
		Words:     fixedWords{target: "crane", allowed: map[string]bool{"crane": true, "trace": true}},
		Publisher: f.recorder,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return f.now },
		NewID: func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.svc = New(opts)
	return f
}

func statuses(r game.GuessResult) []game.LetterStatus { return r.Statuses() }

func TestCraneScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	sess, err := f.svc.StartDaily(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", sess.Day)

	rep, err := f.svc.SubmitGuess(ctx, "p1", sess.ID, "TRACE")
	require.NoError(t, err)
	assert.Equal(t, []game.LetterStatus{
		game.StatusAbsent, game.StatusCorrect, game.StatusCorrect, game.StatusPresent, game.StatusCorrect,
	}, statuses(rep.Result))
	assert.Equal(t, game.StatePlaying, rep.State)
	assert.Nil(t, rep.Completion)
	assert.Equal(t, 0, f.stats.completions)

	rep, err = f.svc.SubmitGuess(ctx, "p1", sess.ID, "crane")
	require.NoError(t, err)
	assert.True(t, rep.Result.Solved())
	assert.Equal(t, game.StateWon, rep.State)
	assert.Equal(t, 2, rep.Attempts)
	assert.Equal(t, "Magnificent!", rep.Message)
	assert.Equal(t, game.StatusCorrect, rep.Keyboard["c"])
	assert.Equal(t, game.StatusAbsent, rep.Keyboard["t"])

	c := rep.Completion
	require.NotNil(t, c)
	assert.True(t, c.Won)
	assert.Equal(t, 100, c.RatingChange)
	assert.Equal(t, 80, c.PointsEarned)
	assert.Equal(t, 1300, c.Rating)
	assert.Equal(t, rank.Gold, c.Tier)
	assert.Equal(t, rank.Unranked, c.DisplayTier)
	assert.Equal(t, 9, c.PlacementRemaining)
	assert.Equal(t, 1, c.Position)
	assert.Equal(t, 1, f.stats.completions)

	evs := f.recorder.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, 1200, evs[0].RatingBefore)
	assert.Equal(t, 1300, evs[0].RatingAfter)

	_, err = f.svc.SubmitGuess(ctx, "p1", sess.ID, "crane")
	assert.ErrorIs(t, err, game.ErrAlreadyCompleted)
	assert.Equal(t, 1, f.stats.completions)

	_, err = f.svc.StartDaily(ctx, "p1")
	assert.ErrorIs(t, err, ErrAlreadyPlayed)

	rec, err := f.svc.PlayedToday(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"trace", "crane"}, rec.Guesses)
	assert.True(t, rec.CompletedAt.Equal(f.now))
}

func TestLossAppliesPlacementPenalty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	sess, err := f.svc.StartDaily(ctx, "p1")
	require.NoError(t, err)

	var rep *GuessReport
	for _, w := range []string{"slate", "pious", "dumpy", "girth", "blimp", "vowel"} {
		rep, err = f.svc.SubmitGuess(ctx, "p1", sess.ID, w)
		require.NoError(t, err)
	}
	assert.Equal(t, game.StateLost, rep.State)
	assert.Equal(t, game.LoseMessage, rep.Message)
	require.NotNil(t, rep.Completion)
	assert.Equal(t, -60, rep.Completion.RatingChange)
	assert.Equal(t, 0, rep.Completion.PointsEarned)
	assert.Equal(t, "crane", rep.Completion.Target)

	st, err := f.mem.LoadRatingState(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1140, st.Rating)
	assert.Equal(t, 0, st.CurrentStreak)
	assert.Equal(t, 1, st.PlacementMatches)
}

func TestInvalidGuessLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	sess, err := f.svc.StartDaily(ctx, "p1")
	require.NoError(t, err)

	_, err = f.svc.SubmitGuess(ctx, "p1", sess.ID, "ab")
	assert.ErrorIs(t, err, game.ErrInvalidInput)
	_, err = f.svc.SubmitGuess(ctx, "p1", sess.ID, "cr4ne")
	assert.ErrorIs(t, err, game.ErrInvalidInput)

	got, err := f.mem.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Attempts())

	// non-strict mode accepts words outside the list
	rep, err := f.svc.SubmitGuess(ctx, "p1", sess.ID, "zzzzz")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Attempts)
}

func TestStrictWords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(o *Options) { o.StrictWords = true })
	sess, err := f.svc.StartDaily(ctx, "p1")
	require.NoError(t, err)

	_, err = f.svc.SubmitGuess(ctx, "p1", sess.ID, "zzzzz")
	assert.ErrorIs(t, err, game.ErrNotInWordList)
	assert.ErrorIs(t, err, game.ErrInvalidInput)

	rep, err := f.svc.SubmitGuess(ctx, "p1", sess.ID, "trace")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Attempts)
}

func TestSessionOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	sess, err := f.svc.StartDaily(ctx, "p1")
	require.NoError(t, err)

	_, err = f.svc.SubmitGuess(ctx, "p2", sess.ID, "crane")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = f.svc.SubmitGuess(ctx, "p1", "missing", "crane")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStartDailyResumesAndRollsOver(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	a, err := f.svc.StartDaily(ctx, "p1")
	require.NoError(t, err)
	_, err = f.svc.SubmitGuess(ctx, "p1", a.ID, "trace")
	require.NoError(t, err)

	b, err := f.svc.StartDaily(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 1, b.Attempts())

	f.now = f.now.Add(24 * time.Hour)
	c, err := f.svc.StartDaily(ctx, "p1")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, "2025-06-02", c.Day)
	assert.Equal(t, 0, c.Attempts())
}

func TestCompletionRetriedAfterStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.stats.failNext = 1

	sess, err := f.svc.StartDaily(ctx, "p1")
	require.NoError(t, err)
	_, err = f.svc.SubmitGuess(ctx, "p1", sess.ID, "crane")
	require.Error(t, err)
	assert.Equal(t, 0, f.stats.completions)

	played, err := f.mem.HasPlayedToday(ctx, "p1", "2025-06-01")
	require.NoError(t, err)
	assert.False(t, played)

	rep, err := f.svc.SubmitGuess(ctx, "p1", sess.ID, "")
	require.NoError(t, err)
	require.NotNil(t, rep.Completion)
	assert.Equal(t, 1, rep.Attempts)
	assert.Equal(t, 1, f.stats.completions)
	assert.Len(t, f.recorder.Events(), 1)
}

func TestStanding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	st, err := f.svc.Standing(ctx, "newbie")
	require.NoError(t, err)
	assert.Equal(t, rating.DefaultRating, st.Rating)
	assert.Equal(t, rank.Silver, st.Tier)
	assert.Equal(t, rank.Unranked, st.DisplayTier)
	assert.Equal(t, 0, st.Position)
	assert.Equal(t, rating.PlacementGames, st.PlacementRemaining)
	assert.Equal(t, rank.Gold, st.Progress.Next)
	assert.Equal(t, 100, st.Progress.Remaining)

	seasoned := rating.NewState()
	seasoned.Rating = 1950
	seasoned.GamesPlayed = 20
	seasoned.GamesWon = 15
	seasoned.PlacementMatches = rating.PlacementGames
	seasoned.InPlacement = false
	require.NoError(t, f.mem.SaveRatingState(ctx, "vet", seasoned))
	require.NoError(t, f.mem.SaveRatingState(ctx, "low", rating.NewState()))

	st, err = f.svc.Standing(ctx, "vet")
	require.NoError(t, err)
	assert.Equal(t, rank.Platinum, st.Tier)
	assert.Equal(t, rank.Platinum, st.DisplayTier)
	assert.Equal(t, 75, st.WinRate)
	assert.Equal(t, 1, st.Position)

	st, err = f.svc.Standing(ctx, "low")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Position)
}

func TestLeaderboardUsesScheme(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(o *Options) { o.Scheme = rank.ScoreScheme })

	a := rating.NewState()
	a.Rating, a.Score, a.InPlacement = 1700, 450, false
	b := rating.NewState()
	b.Rating, b.Score = 1100, 1200
	require.NoError(t, f.mem.SaveRatingState(ctx, "a", a))
	require.NoError(t, f.mem.SaveRatingState(ctx, "b", b))

	rows, err := f.svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].PlayerID)
	assert.Equal(t, rank.Bronze, rows[0].Tier)
	assert.Equal(t, rank.Bronze, rows[0].DisplayTier)
	assert.Equal(t, rank.Gold, rows[1].Tier)
	assert.Equal(t, rank.Unranked, rows[1].DisplayTier)
}

func TestEnsurePlayer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.svc.EnsurePlayer(ctx, "p1"))

	st, err := f.mem.LoadRatingState(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, rating.DefaultRating, st.Rating)

	st.Rating = 1500
	require.NoError(t, f.mem.SaveRatingState(ctx, "p1", st))
	require.NoError(t, f.svc.EnsurePlayer(ctx, "p1"))
	st, err = f.mem.LoadRatingState(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1500, st.Rating)
}

func TestValidateWord(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.StrictWords = true })
	assert.NoError(t, f.svc.ValidateWord("Crane"))

	var ie *game.InputError
	err := f.svc.ValidateWord("cran")
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "Word must be 5 letters", ie.Reason)

	err = f.svc.ValidateWord("cr4ne")
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "Word must contain only letters", ie.Reason)

	assert.ErrorIs(t, f.svc.ValidateWord("zzzzz"), game.ErrNotInWordList)
}

func TestConcurrentStartAndGuess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(o *Options) { o.NewID = nil })
	sess, err := f.svc.StartDaily(ctx, "p1")
	require.NoError(t, err)

	type seen struct {
		id      string
		guesses int
	}
	var (
		wg       sync.WaitGroup
		observed = make(chan seen, 20)
		errs     = make(chan error, 25)
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			if _, err := f.svc.SubmitGuess(ctx, "p1", sess.ID, "trace"); err != nil {
				errs <- err
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			s, err := f.svc.StartDaily(ctx, "p1")
			if err != nil {
				errs <- err
				continue
			}
			observed <- seen{id: s.ID, guesses: len(s.Guesses)}
		}
	}()
	wg.Wait()
	close(observed)
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	for o := range observed {
		assert.Equal(t, sess.ID, o.id)
		assert.LessOrEqual(t, o.guesses, 5)
	}
	got, err := f.mem.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Attempts())
}

func TestConcurrentStartDailyCreatesOneSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(o *Options) { o.NewID = nil })

	ids := make([]string, 8)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s, err := f.svc.StartDaily(ctx, "p2"); err == nil {
				ids[i] = s.ID
			}
		}()
	}
	wg.Wait()

	require.NotEmpty(t, ids[0])
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}
