// Package cli implements the kineticafs command line.
package cli

import (
	"fmt"
	"os"

	"kineticafs/internal/config"
	"kineticafs/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// env is the state shared by subcommands once flags have been parsed.
type env struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *logrus.Logger
}

// NewRootCommand builds the command tree. Each call gets its own viper
// instance so commands can be executed repeatedly in tests.
func NewRootCommand() *cobra.Command {
	e := &env{v: viper.New()}

	root := &cobra.Command{
		Use:           "kineticafs",
		Short:         "Object storage management plane",
		Long:          `KineticaFS manages S3-compatible buckets, service tokens and multi-step file uploads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(e.v, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.ConfigFile != "" {
				logger.WithField("file", cfg.ConfigFile).Info("using config file")
			}
			e.cfg = cfg
			e.logger = logger
			return nil
		},
	}
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCommand(e),
		newMigrateCommand(e),
		newBootstrapCommand(e),
		newCleanupCommand(e),
	)
	return root
}

// Execute runs the root command against os.Args and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
