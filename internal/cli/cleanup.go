package cli

import (
	"fmt"
	"time"

	"kineticafs/internal/server"

	"github.com/spf13/cobra"
)

func newCleanupCommand(e *env) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge file uploads whose blob never arrived",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				ttl = e.cfg.BlobTTL
			}

			app, err := server.New(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := app.Files.PurgeStale(cmd.Context(), ttl)
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d stale uploads\n", n)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "older-than", 0, "Override blob-ttl for this run")
	return cmd
}
