// Package cli はコマンドラインツール marketctl のサブコマンドを定義します。
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"market_journal/internal/app/di"
	"market_journal/internal/feature/marketdata/usecase"
	"market_journal/internal/platform/config"
	"market_journal/internal/platform/logging"
)

// RootOptions is shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Out        io.Writer
	// Market overrides the configured provider. nil uses the config.
	Market usecase.MarketRepository

	cfg *config.Config
}

// NewRootCmd builds the marketctl command tree.
func NewRootCmd(opts *RootOptions) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	cmd := &cobra.Command{
		Use:           "marketctl",
		Short:         "Ingest minute bars and inspect the trade journal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			level := cfg.Server.LogLevel
			if opts.LogLevel != "" {
				level = opts.LogLevel
			}
			logging.Setup(level)
			opts.cfg = cfg
			return nil
		},
	}
	cmd.SetOut(opts.Out)

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "settings YAML file (defaults apply when empty)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "debug|info|warn|error (overrides server.log_level)")

	cmd.AddCommand(
		newIngestCmd(opts),
		newExportCmd(opts),
		newTradesCmd(opts),
		newMigrateCmd(opts),
	)

	return cmd
}

// Execute runs marketctl with os.Args.
func Execute() error {
	return NewRootCmd(&RootOptions{}).Execute()
}

func (o *RootOptions) app(ctx context.Context) (*di.App, error) {
	return di.NewApp(ctx, o.cfg, o.Market)
}
