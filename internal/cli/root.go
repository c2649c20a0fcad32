// Package cli is the rankedle command line: the server itself plus a few
// tools that run the game engine locally.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/robalobadob/rankedle/internal/config"
	"github.com/robalobadob/rankedle/internal/logger"
)

// rootFlags override selected config values.
type rootFlags struct {
	LogLevel string
	Output   string
	Port     string
	Storage  string
	Formula  string
	Scheme   string
}

var (
	flags rootFlags
	cfg   *config.Config
	log   zerolog.Logger
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	flags = rootFlags{LogLevel: os.Getenv("LOG_LEVEL"), Output: "text"}

	rootCmd := &cobra.Command{
		Use:   "rankedle",
		Short: "Ranked daily word game server",
		Long: `rankedle serves a daily five-letter word game with ratings, ranks and a leaderboard.

Settings come from the environment (and a .env file); flags override them.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log = logger.NewWithWriter(cmd.ErrOrStderr(), flags.LogLevel)

			c, err := config.Load(log)
			if err != nil {
				return err
			}
			applyOverrides(cmd, c)
			if err := c.Validate(); err != nil {
				return err
			}
			cfg = c
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level (env: LOG_LEVEL)")
	pf.StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text, json")
	pf.StringVar(&flags.Port, "port", "", "HTTP port (env: PORT)")
	pf.StringVar(&flags.Storage, "storage", "", "Stats backend: memory, sqlite, postgres (env: STORAGE_TYPE)")
	pf.StringVar(&flags.Formula, "formula", "", "Rating formula: table, logistic (env: RATING_FORMULA)")
	pf.StringVar(&flags.Scheme, "scheme", "", "Rank scheme: rating, score (env: RANK_SCHEME)")

	// Add subcommands
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newEvaluateCmd())
	rootCmd.AddCommand(newDeltaCmd())
	rootCmd.AddCommand(newRankCmd())
	rootCmd.AddCommand(newPlayCmd())

	return rootCmd
}

func applyOverrides(cmd *cobra.Command, c *config.Config) {
	pf := cmd.Flags()
	if pf.Changed("port") {
		c.Port = flags.Port
	}
	if pf.Changed("storage") {
		c.StorageType = flags.Storage
	}
	if pf.Changed("formula") {
		c.RatingFormula = flags.Formula
	}
	if pf.Changed("scheme") {
		c.RankScheme = flags.Scheme
	}
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
