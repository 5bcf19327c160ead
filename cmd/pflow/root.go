package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banshee-data/pflow/internal/config"
	"github.com/banshee-data/pflow/internal/monitoring"
	"github.com/banshee-data/pflow/internal/version"
)

// app carries state shared by every sub-command.
type app struct {
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:     "pflow",
		Short:   "Calorimeter hit preparation and software compensation",
		Version: version.String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.sync()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "development logging (debug level, console encoder)")

	cmd.AddCommand(
		newPrepareCmd(),
		newCorrectCmd(),
		newTrainCmd(),
		newPlotCmd(),
	)
	return cmd
}

// newLogger builds the zap backend for monitoring.Logf.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func (a *app) initLogger() error {
	l, err := newLogger(a.verbose)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	a.logger = l
	monitoring.SetLogger(l.Sugar().Infof)
	return nil
}

func (a *app) sync() {
	if a.logger != nil {
		// stderr sync fails on some terminals; nothing useful to do about it
		_ = a.logger.Sync()
	}
}

// loadConfig reads path, or the built-in defaults when path is empty.
func loadConfig(path string) (*config.TuningConfig, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning config: %w", err)
	}
	return cfg, nil
}
