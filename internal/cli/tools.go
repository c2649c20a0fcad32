package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/robalobadob/rankedle/internal/game"
	"github.com/robalobadob/rankedle/internal/rank"
	"github.com/robalobadob/rankedle/internal/rating"
)

func newEvaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate GUESS TARGET",
		Short: "Print the tile colors GUESS gets against TARGET",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			guess, target := game.Normalize(args[0]), game.Normalize(args[1])
			if err := game.ValidateWord(guess); err != nil {
				return err
			}
			res, err := game.Evaluate(guess, target)
			if err != nil {
				return err
			}
			NewOutput(flags.Output, cmd.OutOrStdout()).Print(EvaluateResult{Guess: guess, Target: target, Result: res})
			return nil
		},
	}
}

func newDeltaCmd() *cobra.Command {
	var (
		won       bool
		attempts  int
		current   int
		placement bool
		match     int
	)
	cmd := &cobra.Command{
		Use:   "delta",
		Short: "Compute the rating change for one game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if won && (attempts < 1 || attempts > game.MaxAttempts) {
				return fmt.Errorf("--attempts must be 1-%d for a win", game.MaxAttempts)
			}
			if match < 0 || match >= rating.PlacementGames {
				return fmt.Errorf("--match must be 0-%d", rating.PlacementGames-1)
			}
			f, err := rating.FormulaByName(cfg.RatingFormula)
			if err != nil {
				return err
			}
			e := rating.NewEngine(f)
			d := e.ComputeDelta(rating.Outcome{Won: won, Attempts: attempts}, current, rating.Phase{Placement: placement, MatchIndex: match})
			NewOutput(flags.Output, cmd.OutOrStdout()).Print(DeltaResult{
				Formula:    f.Name(),
				Won:        won,
				Attempts:   attempts,
				Placement:  placement,
				MatchIndex: match,
				Before:     current,
				Delta:      d,
				After:      current + d,
			})
			return nil
		},
	}
	cmd.Flags().BoolVar(&won, "won", false, "The game was won")
	cmd.Flags().IntVar(&attempts, "attempts", 0, "Guesses used (1-6) when won")
	cmd.Flags().IntVar(&current, "rating", rating.DefaultRating, "Rating before the game")
	cmd.Flags().BoolVar(&placement, "placement", false, "Score as a placement match")
	cmd.Flags().IntVar(&match, "match", 0, "Placement matches already completed (0-9)")
	return cmd
}

func newRankCmd() *cobra.Command {
	var placement bool
	cmd := &cobra.Command{
		Use:   "rank VALUE",
		Short: "Classify a rating (or score) into a tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("VALUE must be an integer: %w", err)
			}
			sc, err := rank.SchemeByName(cfg.RankScheme)
			if err != nil {
				return err
			}
			t := sc.Classify(v)
			NewOutput(flags.Output, cmd.OutOrStdout()).Print(RankResult{
				Basis:    sc.Basis,
				Value:    v,
				Tier:     t,
				Display:  rank.Display(t, placement),
				Progress: sc.Progress(v),
			})
			return nil
		},
	}
	cmd.Flags().BoolVar(&placement, "placement", false, "Player is still in placement")
	return cmd
}
