// Package cli provides the memctl command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/bootstrap"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/config"
)

// Version is set at build time.
var Version = "0.1.0"

// env is the state shared by every subcommand of one invocation.
type env struct {
	configFile string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
	close  func() error
}

// NewRootCmd builds the memctl command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "memctl",
		Short: "Operate the narrative memory store",
		Long: `memctl ingests, searches and maintains the narrative memory store.

It reads the same environment variables and CONFIG_FILE as the server, so it
can be pointed at a server's database and index snapshot.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.close != nil {
				e.close()
			}
		},
	}

	root.PersistentFlags().StringVarP(&e.configFile, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newIngestCmd(e),
		newImportCmd(e),
		newSearchCmd(e),
		newDecayCmd(e),
		newReindexCmd(e),
		newStatsCmd(e),
		newServeCmd(e),
	)
	return root
}

// Execute runs memctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (e *env) setup(cmd *cobra.Command) error {
	if e.configFile != "" {
		os.Setenv("CONFIG_FILE", e.configFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if e.verbose {
		cfg.LogLevel = "debug"
	}
	logger, closeLog, err := config.SetupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	e.cfg, e.logger, e.close = cfg, logger, closeLog
	return nil
}

// open wires the stack and restores the index.
func (e *env) open(cmd *cobra.Command) (*bootstrap.App, error) {
	app, err := bootstrap.New(e.cfg, e.logger)
	if err != nil {
		return nil, fmt.Errorf("init memory stack: %w", err)
	}
	if _, err := app.Service.LoadIndex(cmd.Context()); err != nil {
		e.logger.Warn("index unavailable, using linear scan", "error", err)
	}
	return app, nil
}

// persistIndex saves the snapshot when a path is configured.
func (e *env) persistIndex(cmd *cobra.Command, app *bootstrap.App) {
	if e.cfg.IndexSnapshotPath == "" || !app.Service.IndexStatus().Built {
		return
	}
	if _, err := app.Service.SaveIndex(cmd.Context()); err != nil {
		e.logger.Warn("index snapshot not saved", "error", err)
	}
}
