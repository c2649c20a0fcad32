// internal/words/words.go
//
// Word list management and daily target selection.
//
// Responsibilities:
//   - Load answer and allowed guess lists from configured files or fall back
//     to the embedded defaults in the assets package.
//   - Maintain sets for quick lookups (answers only, answers∪guesses).
//   - Pick the day's target deterministically (see daily.go).
//
// Loading rules (Load):
//   1. AnswersFile and AllowedFile both set: answers from the first,
//      extra guesses from the second.
//   2. Only AllowedFile set: that file is used for both.
//   3. Neither set: embedded assets/answers.txt + assets/allowed.txt.
//
// Constraints:
//   • Words must be 5 alphabetic letters (a–z); others are dropped.
//   • Lists are normalized to lowercase.

package words

import (
	"crypto/rand"
	"errors"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/robalobadob/rankedle/assets"
)

// ErrEmpty is returned when no usable answers were loaded.
var ErrEmpty = errors.New("words: answers list is empty")

// Config selects word sources and the daily salt.
type Config struct {
	AnswersFile string
	AllowedFile string
	Salt        string
}

// List holds the loaded words. It is read-only after construction.
type List struct {
	answers    []string            // canonical answers, in file order
	answersSet map[string]struct{} // answers only
	allowedSet map[string]struct{} // answers ∪ guesses
	salt       string
}

// Load builds a List according to cfg.
func Load(cfg Config) (*List, error) {
	var ansList, allowList []string
	var err error

	switch {
	case cfg.AnswersFile != "" && cfg.AllowedFile != "":
		if ansList, err = readWordFile(cfg.AnswersFile); err != nil {
			return nil, err
		}
		if allowList, err = readWordFile(cfg.AllowedFile); err != nil {
			return nil, err
		}

	case cfg.AllowedFile != "":
		if allowList, err = readWordFile(cfg.AllowedFile); err != nil {
			return nil, err
		}
		ansList = allowList

	default:
		if ansList, err = assets.Answers(); err != nil {
			return nil, err
		}
		if allowList, err = assets.Allowed(); err != nil {
			return nil, err
		}
	}

	return New(ansList, allowList, cfg.Salt)
}

// New builds a List from in-memory slices. Answers are always allowed.
func New(answers, allowed []string, salt string) (*List, error) {
	ans := normalize(answers)
	if len(ans) == 0 {
		return nil, ErrEmpty
	}
	l := &List{
		answers:    ans,
		answersSet: toSet(ans),
		allowedSet: toSet(ans),
		salt:       salt,
	}
	for _, w := range normalize(allowed) {
		l.allowedSet[w] = struct{}{}
	}
	return l, nil
}

// readWordFile loads one word per line from a file.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := assets.Lines(f)
	if err != nil {
		return nil, err
	}
	return normalize(lines), nil
}

// normalize lowercases, trims and keeps only 5-letter a–z words, dropping duplicates.
func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, line := range in {
		w := strings.TrimSpace(strings.ToLower(line))
		if len(w) != 5 || !isAlpha(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[w] = struct{}{}
	}
	return m
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// DailyTarget returns the answer for t's UTC date.
func (l *List) DailyTarget(t time.Time) string {
	return l.answers[WordIndex(t, l.salt, len(l.answers))]
}

// RandomAnswer returns a cryptographically random answer.
func (l *List) RandomAnswer() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(l.answers))))
	if err != nil {
		return l.answers[0]
	}
	return l.answers[n.Int64()]
}

// IsAllowed reports whether w is a valid guess (answers ∪ guesses).
func (l *List) IsAllowed(w string) bool {
	_, ok := l.allowedSet[strings.ToLower(strings.TrimSpace(w))]
	return ok
}

// IsAnswer reports whether w is an answer word.
func (l *List) IsAnswer(w string) bool {
	_, ok := l.answersSet[strings.ToLower(strings.TrimSpace(w))]
	return ok
}

// Stats returns counts of loaded words: (answers, allowed).
func (l *List) Stats() (answersCount int, allowedCount int) {
	return len(l.answers), len(l.allowedSet)
}
