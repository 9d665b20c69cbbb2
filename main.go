package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"exohabit/config"
	"exohabit/logging"
	"exohabit/scoring"
)

const tuiLogFile = "exohabit.log"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	baseURL    string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	level  zap.AtomicLevel
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "exohabit",
		Short:         "Exoplanet habitability scanner",
		Long:          "Validates exoplanet parameters and asks a remote scoring service how habitable the planet is.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "scoring service base URL (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.serveCmd(),
		a.tuiCmd(),
		a.predictCmd(),
		a.statsCmd(),
		a.rankCmd(),
		a.pingCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.baseURL != "" {
		cfg.API.BaseURL = a.baseURL
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	// The terminal UI owns the screen, so its logs go to a file.
	if cmd.Name() == "tui" && cfg.Log.File == "" {
		cfg.Log.File = tuiLogFile
	}

	logger, level, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	a.cfg, a.logger, a.level = cfg, logger, level
	return nil
}

func (a *app) client() *scoring.Client {
	return scoring.NewClient(a.cfg.API.BaseURL, nil, a.logger)
}

// watchConfig re-applies the log level, plus anything in extra, whenever
// the config file changes.
func (a *app) watchConfig(ctx context.Context, extra ...func(*config.Config)) {
	if a.configPath == "" {
		return
	}
	err := config.Watch(ctx, a.configPath, a.logger, func(c *config.Config) {
		for _, fn := range extra {
			fn(c)
		}
		if a.verbose {
			return
		}
		if err := logging.SetLevel(a.level, c.Log.Level); err != nil {
			a.logger.Warn("ignoring log level from config", zap.Error(err))
		}
	})
	if err != nil {
		a.logger.Warn("config watch disabled", zap.Error(err))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
