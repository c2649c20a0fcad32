package cli

import (
	"github.com/spf13/cobra"

	"github.com/robalobadob/rankedle/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.New(cfg, log)
			if err := a.Err(); err != nil {
				return err
			}
			a.Run()
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations for the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Migrate(cmd.Context(), cfg, log); err != nil {
				return err
			}
			NewOutput(flags.Output, cmd.OutOrStdout()).PrintMessage("migrations applied (" + cfg.StorageType + ")")
			return nil
		},
	}
}
