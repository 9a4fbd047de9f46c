package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"clusterlabel/internal/config"
	"clusterlabel/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globals struct {
	configPath string
	source     string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
}

func main() {
	_ = godotenv.Load(".env")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "labelctl",
		Short: "Label document clusters from the command line",
		Long: `labelctl runs the cluster labeling engine against the configured asset table
without the HTTP service: label clusters, print the coverage summary or reset
labels. Settings come from CLUSTERLABEL_* variables, optionally overridden by
a YAML file given with --config.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if g.configPath != "" {
				var err error
				if cfg, err = config.LoadFile(g.configPath); err != nil {
					return err
				}
			}
			if g.logLevel != "" {
				cfg.LogLevel = g.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, "console")
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			g.cfg, g.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&g.source, "source", "", "data source: csv or db (default from config)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level override")

	root.AddCommand(newLabelCmd(g), newSummaryCmd(g), newResetCmd(g))
	return root
}
