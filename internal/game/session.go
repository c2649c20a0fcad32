// internal/game/session.go
//
// A single player's attempt at one day's target word.
// Responsibilities:
//   - Validate and apply guesses (length, alphabetic, optional dictionary).
//   - Track state transitions: playing → won/lost (both terminal).
//   - Guarantee completion is scored exactly once (MarkScored).
//
// Sessions are plain data so stores can serialize them as JSON; the
// dictionary is attached per request and never persisted.
package game

import (
	"time"
)

// WinMessages are indexed by attempts-1.
var WinMessages = [MaxAttempts]string{
	"Genius!",
	"Magnificent!",
	"Impressive!",
	"Splendid!",
	"Great!",
	"Good job!",
}

// LoseMessage is shown when all attempts are used.
const LoseMessage = "Better luck next time!"

// Dictionary reports whether a word is an accepted guess.
type Dictionary interface {
	IsAllowed(word string) bool
}

// Session holds the state of one daily game.
type Session struct {
	ID          string        `json:"id"`
	PlayerID    string        `json:"playerId"`
	Day         string        `json:"day"`    // YYYY-MM-DD (UTC)
	Target      string        `json:"target"` // lowercase solution
	Guesses     []string      `json:"guesses"`
	Results     []GuessResult `json:"results"`
	State       State         `json:"state"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt,omitempty"`
	Scored      bool          `json:"scored"` // rating applied for this session

	dict Dictionary
}

// NewSession starts a session in the playing state.
func NewSession(id, playerID, day, target string, startedAt time.Time) *Session {
	return &Session{
		ID:        id,
		PlayerID:  playerID,
		Day:       day,
		Target:    Normalize(target),
		Guesses:   []string{},
		Results:   []GuessResult{},
		State:     StatePlaying,
		StartedAt: startedAt,
	}
}

// Clone returns a deep copy without the attached dictionary.
func (s *Session) Clone() *Session {
	cp := *s
	cp.dict = nil
	cp.Guesses = append([]string{}, s.Guesses...)
	cp.Results = make([]GuessResult, len(s.Results))
	for i, r := range s.Results {
		cp.Results[i] = append(GuessResult(nil), r...)
	}
	return &cp
}

// UseDictionary attaches a word list that guesses must belong to.
func (s *Session) UseDictionary(d Dictionary) *Session {
	s.dict = d
	return s
}

// SubmitGuess validates and evaluates a guess, mutating the session.
//
// Errors (no state change in every case):
//   - ErrAlreadyCompleted when the session is won or lost.
//   - ErrInvalidInput (as *InputError) when text is not 5 letters a–z.
//   - ErrNotInWordList when a dictionary is attached and rejects the word.
func (s *Session) SubmitGuess(text string) (GuessResult, error) {
	if s.Finished() {
		return nil, ErrAlreadyCompleted
	}
	if err := ValidateWord(text); err != nil {
		return nil, err
	}
	guess := Normalize(text)
	if s.dict != nil && !s.dict.IsAllowed(guess) {
		return nil, &InputError{Reason: "Not in word list", Err: ErrNotInWordList}
	}

	res, err := Evaluate(guess, s.Target)
	if err != nil {
		return nil, err
	}
	s.Guesses = append(s.Guesses, guess)
	s.Results = append(s.Results, res)

	switch {
	case res.Solved():
		s.State = StateWon
	case len(s.Guesses) >= MaxAttempts:
		s.State = StateLost
	}
	return res, nil
}

// Attempts is the number of accepted guesses.
func (s *Session) Attempts() int { return len(s.Guesses) }

// Finished reports whether the session reached a terminal state.
func (s *Session) Finished() bool { return s.State == StateWon || s.State == StateLost }

// Won reports whether the target was guessed.
func (s *Session) Won() bool { return s.State == StateWon }

// MarkScored returns true exactly once, on the first call after the session
// finished. Callers apply rating changes only when it returns true.
func (s *Session) MarkScored() bool {
	if !s.Finished() || s.Scored {
		return false
	}
	s.Scored = true
	return true
}

// Message is the end-of-game banner, empty while playing.
func (s *Session) Message() string {
	switch s.State {
	case StateWon:
		if n := s.Attempts(); n >= 1 && n <= MaxAttempts {
			return WinMessages[n-1]
		}
	case StateLost:
		return LoseMessage
	}
	return ""
}

// Keyboard merges all results so far into a per-letter status.
func (s *Session) Keyboard() Keyboard {
	kb := Keyboard{}
	for _, r := range s.Results {
		kb.Merge(r)
	}
	return kb
}

// Keyboard maps a letter to the best status seen for it.
type Keyboard map[string]LetterStatus

// Merge folds one result in; correct beats present beats absent.
func (k Keyboard) Merge(r GuessResult) {
	for _, l := range r {
		if l.Status.rank() > k[l.Letter].rank() {
			k[l.Letter] = l.Status
		}
	}
}
