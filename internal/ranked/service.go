// Package ranked runs the daily ranked game: it hands out each player's
// session for the day, applies guesses, and on completion updates the
// player's rating state exactly once.
package ranked

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/rankedle/internal/auth"
	"github.com/robalobadob/rankedle/internal/events"
	"github.com/robalobadob/rankedle/internal/game"
	"github.com/robalobadob/rankedle/internal/observability"
	"github.com/robalobadob/rankedle/internal/rank"
	"github.com/robalobadob/rankedle/internal/rating"
	"github.com/robalobadob/rankedle/internal/store"
	"github.com/robalobadob/rankedle/internal/words"
)

var (
	ErrAlreadyPlayed = errors.New("already played today")
	ErrNoSession     = errors.New("no such game session")
)

const DefaultLeaderboardLimit = 100

// WordSource supplies the day's target and the guess dictionary.
type WordSource interface {
	DailyTarget(t time.Time) string
	IsAllowed(word string) bool
}

type Options struct {
	Stats     store.PlayerStatsRepository
	Sessions  store.SessionStore
	Words     WordSource
	Engine    *rating.Engine
	Scheme    rank.Scheme
	Publisher events.Publisher
	Metrics   *observability.Metrics
	Logger    zerolog.Logger

	// StrictWords rejects guesses missing from the word list.
	StrictWords bool
	Now         func() time.Time
	NewID       func() string
}

type Service struct {
	stats     store.PlayerStatsRepository
	sessions  store.SessionStore
	words     WordSource
	engine    *rating.Engine
	scheme    rank.Scheme
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
	strict    bool
	now       func() time.Time
	newID     func() string

	locks [64]sync.Mutex
}

// New builds a Service; Stats, Sessions and Words are required.
func New(o Options) *Service {
	s := &Service{
		stats:     o.Stats,
		sessions:  o.Sessions,
		words:     o.Words,
		engine:    o.Engine,
		scheme:    o.Scheme,
		publisher: o.Publisher,
		metrics:   o.Metrics,
		logger:    o.Logger.With().Str("component", "ranked").Logger(),
		strict:    o.StrictWords,
		now:       o.Now,
		newID:     o.NewID,
	}
	if s.engine == nil {
		s.engine = rating.NewEngine(nil)
	}
	if s.scheme.Thresholds == nil {
		s.scheme = rank.RatingScheme
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	if s.metrics == nil {
		s.metrics = observability.Noop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = auth.NewID
	}
	return s
}

// Scheme is the configured rank scheme.
func (s *Service) Scheme() rank.Scheme { return s.scheme }

// Today is the current UTC day key.
func (s *Service) Today() string { return words.DateKey(s.now()) }

// NextReset is when today's word rolls over.
func (s *Service) NextReset() time.Time { return words.NextReset(s.now()) }

// lock serializes work on one key: a session ID, or a player's day in
// StartDaily.
func (s *Service) lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &s.locks[h.Sum32()%uint32(len(s.locks))]
	mu.Lock()
	return mu.Unlock
}

// StartDaily returns the player's session for today, creating it if needed.
func (s *Service) StartDaily(ctx context.Context, playerID string) (*game.Session, error) {
	now := s.now()
	day := words.DateKey(now)
	defer s.lock("start|" + playerID + "|" + day)()

	played, err := s.stats.HasPlayedToday(ctx, playerID, day)
	if err != nil {
		return nil, fmt.Errorf("check daily: %w", err)
	}
	if played {
		return nil, ErrAlreadyPlayed
	}

	existing, err := s.sessions.FindSession(ctx, playerID, day)
	switch {
	case err == nil && existing.Finished() && existing.Scored:
		return nil, ErrAlreadyPlayed
	case err == nil:
		return existing, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("find session: %w", err)
	}

	sess := game.NewSession(s.newID(), playerID, day, s.words.DailyTarget(now), now.UTC())
	if err := s.sessions.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.logger.Debug().Str("playerId", playerID).Str("day", day).Str("gameId", sess.ID).Msg("daily session started")
	return sess, nil
}

// Completion is reported once, with the guess that ended the game.
type Completion struct {
	Won                bool      `json:"won"`
	Attempts           int       `json:"attempts"`
	Target             string    `json:"target"`
	RatingChange       int       `json:"ratingChange"`
	PointsEarned       int       `json:"pointsEarned"`
	Rating             int       `json:"rating"`
	Score              int       `json:"score"`
	Tier               rank.Tier `json:"tier"`
	DisplayTier        rank.Tier `json:"displayTier"`
	InPlacement        bool      `json:"isInPlacementPhase"`
	PlacementRemaining int       `json:"placementRemaining"`
	Position           int       `json:"position,omitempty"`
}

// GuessReport is the outcome of one SubmitGuess call.
type GuessReport struct {
	Result     game.GuessResult `json:"result"`
	State      game.State       `json:"state"`
	Attempts   int              `json:"attempts"`
	Message    string           `json:"message,omitempty"`
	Keyboard   game.Keyboard    `json:"keyboard"`
	Completion *Completion      `json:"completion,omitempty"`
}

// SubmitGuess applies text to the player's session.
//
// Input errors from the game package are returned unchanged and leave the
// session untouched. When the guess ends the game the rating update is
// applied and persisted before the report is returned.
func (s *Service) SubmitGuess(ctx context.Context, playerID, sessionID, text string) (*GuessReport, error) {
	defer s.lock(sessionID)()

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sess.PlayerID != playerID) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var res game.GuessResult
	if sess.Finished() && !sess.Scored {
		// an earlier completion failed to persist; retry it instead of guessing
		res = sess.Results[len(sess.Results)-1]
	} else {
		if s.strict {
			sess.UseDictionary(s.words)
		}
		res, err = sess.SubmitGuess(text)
		if err != nil {
			s.metrics.GuessSubmitted(ctx, guessOutcome(err))
			return nil, err
		}
		s.metrics.GuessSubmitted(ctx, "accepted")
		if sess.Finished() {
			sess.CompletedAt = s.now().UTC()
		}
	}

	report := &GuessReport{
		Result:   res,
		State:    sess.State,
		Attempts: sess.Attempts(),
		Message:  sess.Message(),
		Keyboard: sess.Keyboard(),
	}

	if sess.MarkScored() {
		c, err := s.complete(ctx, sess)
		switch {
		case errors.Is(err, store.ErrAlreadyRecorded):
			s.logger.Warn().Str("playerId", playerID).Str("day", sess.Day).Msg("day already recorded; session not scored")
		case err != nil:
			sess.Scored = false
			if saveErr := s.sessions.SaveSession(ctx, sess); saveErr != nil {
				s.logger.Error().Err(saveErr).Str("gameId", sess.ID).Msg("save session after failed completion")
			}
			return nil, err
		default:
			report.Completion = c
		}
	}

	if err := s.sessions.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return report, nil
}

// ValidateWord checks a word the way SubmitGuess would, without a session.
func (s *Service) ValidateWord(word string) error {
	if err := game.ValidateWord(word); err != nil {
		return err
	}
	if s.strict && !s.words.IsAllowed(game.Normalize(word)) {
		return &game.InputError{Reason: "Not in word list", Err: game.ErrNotInWordList}
	}
	return nil
}

func guessOutcome(err error) string {
	switch {
	case errors.Is(err, game.ErrAlreadyCompleted):
		return "completed"
	case errors.Is(err, game.ErrNotInWordList):
		return "rejected"
	default:
		return "invalid"
	}
}

// complete applies the rating update for a finished session and records it.
func (s *Service) complete(ctx context.Context, sess *game.Session) (*Completion, error) {
	st, err := s.stats.LoadRatingState(ctx, sess.PlayerID)
	if errors.Is(err, store.ErrNotFound) {
		st = rating.NewState()
	} else if err != nil {
		return nil, fmt.Errorf("load rating state: %w", err)
	}

	placement := st.InPlacement
	upd := s.engine.Apply(&st, rating.Outcome{Won: sess.Won(), Attempts: sess.Attempts()}, sess.CompletedAt)
	tier := s.scheme.Classify(s.value(st))

	rec := store.GameRecord{
		ID:           s.newID(),
		PlayerID:     sess.PlayerID,
		Day:          sess.Day,
		Won:          sess.Won(),
		Attempts:     sess.Attempts(),
		Guesses:      append([]string(nil), sess.Guesses...),
		RatingChange: upd.RatingChange,
		PointsEarned: upd.PointsEarned,
		CompletedAt:  sess.CompletedAt,
	}
	if err := s.stats.CompleteGame(ctx, rec, st); err != nil {
		if errors.Is(err, store.ErrAlreadyRecorded) {
			return nil, err
		}
		return nil, fmt.Errorf("record game: %w", err)
	}

	s.logger.Info().
		Str("playerId", sess.PlayerID).
		Str("day", sess.Day).
		Bool("won", rec.Won).
		Int("attempts", rec.Attempts).
		Int("ratingChange", upd.RatingChange).
		Int("rating", st.Rating).
		Str("tier", string(tier)).
		Msg("game completed")

	s.metrics.GameCompleted(ctx, rec.Won, rec.Attempts, upd.RatingChange, placement)
	if err := s.publisher.PublishGameCompleted(ctx, events.GameCompleted{
		PlayerID:     rec.PlayerID,
		Day:          rec.Day,
		Won:          rec.Won,
		Attempts:     rec.Attempts,
		RatingBefore: upd.Before.Rating,
		RatingAfter:  st.Rating,
		RatingChange: upd.RatingChange,
		PointsEarned: upd.PointsEarned,
		Tier:         string(tier),
		InPlacement:  st.InPlacement,
		CompletedAt:  rec.CompletedAt,
	}); err != nil {
		s.logger.Warn().Err(err).Str("playerId", rec.PlayerID).Msg("publish game completed")
	}

	c := &Completion{
		Won:                rec.Won,
		Attempts:           rec.Attempts,
		Target:             sess.Target,
		RatingChange:       upd.RatingChange,
		PointsEarned:       upd.PointsEarned,
		Rating:             st.Rating,
		Score:              st.Score,
		Tier:               tier,
		DisplayTier:        rank.Display(tier, st.InPlacement),
		InPlacement:        st.InPlacement,
		PlacementRemaining: rating.PlacementGames - st.PlacementMatches,
	}
	if pos, err := s.stats.Position(ctx, sess.PlayerID); err == nil {
		c.Position = pos
	} else {
		s.logger.Warn().Err(err).Str("playerId", sess.PlayerID).Msg("leaderboard position")
	}
	return c, nil
}

// value picks the number the configured scheme classifies.
func (s *Service) value(st rating.State) int {
	if s.scheme.Basis == rank.BasisScore {
		return st.Score
	}
	return st.Rating
}
