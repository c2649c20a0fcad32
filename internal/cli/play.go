package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/robalobadob/rankedle/internal/game"
	"github.com/robalobadob/rankedle/internal/rank"
	"github.com/robalobadob/rankedle/internal/ranked"
	"github.com/robalobadob/rankedle/internal/rating"
	"github.com/robalobadob/rankedle/internal/store"
	"github.com/robalobadob/rankedle/internal/words"
)

const localPlayer = "local"

// pinnedTarget replaces the daily word with a fixed one.
type pinnedTarget struct {
	*words.List
	target string
}

func (p pinnedTarget) DailyTarget(time.Time) string { return p.target }

func newPlayCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play today's word in the terminal",
		Long: `Play today's word against the local engine. Results are kept in memory
and scored as a first placement game from the default rating.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := words.Load(words.Config{AnswersFile: cfg.AnswersFile, AllowedFile: cfg.AllowedFile, Salt: cfg.DailySalt})
			if err != nil {
				return err
			}
			var src ranked.WordSource = list
			if target != "" {
				if err := game.ValidateWord(target); err != nil {
					return err
				}
				src = pinnedTarget{List: list, target: game.Normalize(target)}
			}
			f, err := rating.FormulaByName(cfg.RatingFormula)
			if err != nil {
				return err
			}
			sc, err := rank.SchemeByName(cfg.RankScheme)
			if err != nil {
				return err
			}

			mem := store.NewMemoryStore()
			svc := ranked.New(ranked.Options{
				Stats:       mem,
				Sessions:    mem,
				Words:       src,
				Engine:      rating.NewEngine(f),
				Scheme:      sc,
				Logger:      log,
				StrictWords: cfg.StrictWords && target == "",
			})
			return play(cmd.Context(), svc, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "Play this word instead of today's")
	return cmd
}

// play runs one session reading guesses line by line from in.
func play(ctx context.Context, svc *ranked.Service, in io.Reader, out io.Writer) error {
	sess, err := svc.StartDaily(ctx, localPlayer)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Daily word for %s. You have %d guesses.\n", sess.Day, game.MaxAttempts)

	sc := bufio.NewScanner(in)
	for attempt := 1; ; {
		fmt.Fprintf(out, "%d> ", attempt)
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		guess := strings.TrimSpace(sc.Text())
		if guess == "" {
			continue
		}

		report, err := svc.SubmitGuess(ctx, localPlayer, sess.ID, guess)
		var ie *game.InputError
		if errors.As(err, &ie) {
			fmt.Fprintln(out, ie.Reason)
			continue
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s  %s\n", strings.ToUpper(game.Normalize(guess)), Tiles(report.Result))
		attempt = report.Attempts + 1
		if report.Completion == nil {
			continue
		}
		c := report.Completion
		if report.Message != "" {
			fmt.Fprintln(out, report.Message)
		}
		if !c.Won {
			fmt.Fprintf(out, "The word was %s.\n", strings.ToUpper(c.Target))
		}
		fmt.Fprintf(out, "Rating %+d -> %d, +%d points, tier %s\n", c.RatingChange, c.Rating, c.PointsEarned, c.DisplayTier)
		return nil
	}
}
