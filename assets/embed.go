// Package assets embeds the default word lists so the server runs without
// any word files configured.
package assets

import (
	"bufio"
	"embed"
	"io"
	"strings"
	"sync"
)

//go:embed allowed.txt answers.txt
var FS embed.FS

var (
	answers = sync.OnceValues(func() ([]string, error) { return open("answers.txt") })
	allowed = sync.OnceValues(func() ([]string, error) { return open("allowed.txt") })
)

// Answers is the embedded daily answer list, read once.
func Answers() ([]string, error) { return answers() }

// Allowed is the embedded list of extra accepted guesses, read once.
func Allowed() ([]string, error) { return allowed() }

func open(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Lines(f)
}

// Lines reads one word per line, skipping blanks and # comments.
// Words are trimmed and lowercased but not otherwise validated.
func Lines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out, sc.Err()
}
