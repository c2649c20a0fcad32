// internal/game/evaluate.go
//
// Guess evaluation under duplicate-letter rules.
//
// Pass 1:
//   - Mark exact matches as correct.
//   - Count the remaining (unmatched) target letters.
//
// Pass 2:
//   - For each non-correct guess letter: if an unmatched occurrence remains,
//     mark present and consume it; otherwise mark absent.
//
// A guess letter can therefore never be reported present more often than the
// target holds unmatched copies of it.
package game

import (
	"fmt"
	"strings"
)

// Evaluate scores guess against target. Comparison is case-insensitive.
// Returns ErrLengthMismatch when the two words differ in length.
func Evaluate(guess, target string) (GuessResult, error) {
	g := []rune(Normalize(guess))
	t := []rune(Normalize(target))
	if len(g) != len(t) {
		return nil, fmt.Errorf("%w: guess has %d letters, target has %d", ErrLengthMismatch, len(g), len(t))
	}

	res := make(GuessResult, len(g))

	// Unmatched target letters; non a–z runes fall back to the overflow map.
	var counts [26]int
	var other map[rune]int

	for i := range g {
		res[i].Letter = string(g[i])
		if g[i] == t[i] {
			res[i].Status = StatusCorrect
			continue
		}
		if j := idx(t[i]); j >= 0 {
			counts[j]++
		} else {
			if other == nil {
				other = make(map[rune]int)
			}
			other[t[i]]++
		}
	}

	for i := range g {
		if res[i].Status == StatusCorrect {
			continue
		}
		res[i].Status = StatusAbsent
		if j := idx(g[i]); j >= 0 {
			if counts[j] > 0 {
				counts[j]--
				res[i].Status = StatusPresent
			}
		} else if other[g[i]] > 0 {
			other[g[i]]--
			res[i].Status = StatusPresent
		}
	}
	return res, nil
}

// Normalize trims and lowercases a word.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateWord checks that s (after Normalize) is exactly WordLength letters a–z.
// The returned *InputError wraps ErrInvalidInput.
func ValidateWord(s string) error {
	w := Normalize(s)
	if len([]rune(w)) != WordLength {
		return &InputError{Reason: fmt.Sprintf("Word must be %d letters", WordLength), Err: ErrInvalidInput}
	}
	if !isAlpha(w) {
		return &InputError{Reason: "Word must contain only letters", Err: ErrInvalidInput}
	}
	return nil
}

// idx maps a lowercase ASCII letter to 0..25, or -1.
func idx(r rune) int {
	if r < 'a' || r > 'z' {
		return -1
	}
	return int(r - 'a')
}

// isAlpha checks that a string consists only of lowercase a–z.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
