package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/robalobadob/rankedle/internal/game"
	"github.com/robalobadob/rankedle/internal/rank"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case EvaluateResult:
		fmt.Fprintf(o.w, "%s  %s\n", strings.ToUpper(v.Guess), Tiles(v.Result))
		fmt.Fprintln(o.w, strings.Join(statusNames(v.Result), " "))
	case DeltaResult:
		fmt.Fprintf(o.w, "%+d (%d -> %d, %s formula", v.Delta, v.Before, v.After, v.Formula)
		if v.Placement {
			fmt.Fprintf(o.w, ", placement match %d", v.MatchIndex+1)
		}
		fmt.Fprintln(o.w, ")")
	case RankResult:
		o.printRank(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printRank(v RankResult) {
	fmt.Fprintf(o.w, "%s (%s %d)\n", v.Display, v.Basis, v.Value)
	if v.Progress.Next == "" {
		fmt.Fprintln(o.w, "top tier")
		return
	}
	fmt.Fprintf(o.w, "next: %s at %d, %d to go (%d%%)\n", v.Progress.Next, v.Progress.NextMin, v.Progress.Remaining, v.Progress.Percent)
}

// Tiles renders a result as colored squares.
func Tiles(r game.GuessResult) string {
	var b strings.Builder
	for _, l := range r {
		switch l.Status {
		case game.StatusCorrect:
			b.WriteString("🟩")
		case game.StatusPresent:
			b.WriteString("🟨")
		default:
			b.WriteString("⬛")
		}
	}
	return b.String()
}

func statusNames(r game.GuessResult) []string {
	out := make([]string, len(r))
	for i, s := range r.Statuses() {
		out[i] = string(s)
	}
	return out
}

// EvaluateResult is printed by `evaluate`.
type EvaluateResult struct {
	Guess  string           `json:"guess"`
	Target string           `json:"target"`
	Result game.GuessResult `json:"result"`
}

// DeltaResult is printed by `delta`.
type DeltaResult struct {
	Formula    string `json:"formula"`
	Won        bool   `json:"won"`
	Attempts   int    `json:"attempts"`
	Placement  bool   `json:"placement"`
	MatchIndex int    `json:"matchIndex"`
	Before     int    `json:"before"`
	Delta      int    `json:"delta"`
	After      int    `json:"after"`
}

// RankResult is printed by `rank`.
type RankResult struct {
	Basis    rank.Basis    `json:"basis"`
	Value    int           `json:"value"`
	Tier     rank.Tier     `json:"tier"`
	Display  rank.Tier     `json:"displayTier"`
	Progress rank.Progress `json:"progress"`
}
