package cli

import (
	"os"
	"os/signal"
	"syscall"

	"kineticafs/internal/server"

	"github.com/spf13/cobra"
)

func newServeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := server.New(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					e.logger.WithError(err).Warn("close database")
				}
			}()

			if err := app.Run(ctx); err != nil {
				return err
			}
			e.logger.Info("application stopped")
			return nil
		},
	}
}
