// internal/game/types.go
//
// Core type definitions for the daily word game.
// Defines:
//   - LetterStatus: per-letter result of a guess (correct/present/absent).
//   - GuessResult: ordered per-position evaluation of one guess.
//   - State: lifecycle of a single session (playing → won/lost).

package game

import (
	"errors"
	"fmt"
)

const (
	// WordLength is the number of letters in every guess and target.
	WordLength = 5
	// MaxAttempts is the number of guesses allowed per session.
	MaxAttempts = 6
)

// LetterStatus represents the evaluation result for a single letter in a guess.
//   - "correct": letter is in the target at the same position.
//   - "present": letter is in the target at another, unmatched position.
//   - "absent":  letter has no unmatched occurrence left in the target.
type LetterStatus string

const (
	StatusCorrect LetterStatus = "correct"
	StatusPresent LetterStatus = "present"
	StatusAbsent  LetterStatus = "absent"
)

// rank orders statuses for keyboard merging (correct beats present beats absent).
func (s LetterStatus) rank() int {
	switch s {
	case StatusCorrect:
		return 3
	case StatusPresent:
		return 2
	case StatusAbsent:
		return 1
	}
	return 0
}

// Letter is one tile of an evaluated guess.
type Letter struct {
	Letter string       `json:"letter"`
	Status LetterStatus `json:"status"`
}

// GuessResult has exactly one Letter per position of the guess.
type GuessResult []Letter

// Solved reports whether every tile is correct.
func (r GuessResult) Solved() bool {
	if len(r) == 0 {
		return false
	}
	for _, l := range r {
		if l.Status != StatusCorrect {
			return false
		}
	}
	return true
}

// Statuses returns the tile statuses in position order.
func (r GuessResult) Statuses() []LetterStatus {
	out := make([]LetterStatus, len(r))
	for i, l := range r {
		out[i] = l.Status
	}
	return out
}

// State is the coarse lifecycle of a session.
type State string

const (
	StatePlaying State = "playing"
	StateWon     State = "won"
	StateLost    State = "lost"
)

var (
	// ErrLengthMismatch is returned when guess and target differ in length.
	ErrLengthMismatch = errors.New("guess and target length differ")
	// ErrInvalidInput is returned for guesses that are not 5 alphabetic letters.
	ErrInvalidInput = errors.New("invalid guess")
	// ErrNotInWordList is returned when a dictionary is attached and rejects the word.
	ErrNotInWordList = fmt.Errorf("%w: not in word list", ErrInvalidInput)
	// ErrAlreadyCompleted is returned for guesses against a finished session.
	ErrAlreadyCompleted = errors.New("game already completed")
)

// InputError carries a user-facing reason for a rejected guess.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string { return e.Err.Error() + ": " + e.Reason }
func (e *InputError) Unwrap() error { return e.Err }
