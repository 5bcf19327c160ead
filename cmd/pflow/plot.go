package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pflow/internal/calo"
	"github.com/banshee-data/pflow/internal/calo/monitor"
	"github.com/banshee-data/pflow/internal/calo/softcomp"
)

// Cluster energies (GeV) drawn by default in the weight-curve plot.
var defaultPlotEnergies = []float64{5, 10, 20, 40, 60, 80}

type plotOptions struct {
	outDir     string
	configPath string
	eventPath  string
	energies   []float64
}

func newPlotCmd() *cobra.Command {
	opts := &plotOptions{}
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Write weight curves and, for an event, density and correction charts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "plots", "output directory")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "tuning config (.json); built-in defaults when empty")
	cmd.Flags().StringVarP(&opts.eventPath, "event", "e", "", "optional event file for the density and correction charts")
	cmd.Flags().Float64SliceVar(&opts.energies, "energies", defaultPlotEnergies, "cluster energies (GeV) for the weight curves")
	return cmd
}

func runPlot(ctx context.Context, w io.Writer, opts *plotOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	model, err := softcomp.New(softcomp.ParametersFromConfig(cfg))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	curves := filepath.Join(opts.outDir, "weight_curves.png")
	if err := monitor.PlotWeightCurves(model, opts.energies, curves); err != nil {
		return err
	}
	fmt.Fprintln(w, curves)

	if opts.eventPath == "" {
		return nil
	}
	ev, err := calo.LoadEvent(opts.eventPath)
	if err != nil {
		return err
	}

	density := filepath.Join(opts.outDir, "density_histogram.html")
	hist := monitor.DensityHistogram(model, ev.Hits)
	if err := writeChart(density, func(f io.Writer) error {
		return monitor.RenderDensityHistogram(f, hist, "HCAL hit energy density")
	}); err != nil {
		return err
	}
	fmt.Fprintln(w, density)

	clusters, err := ev.BuildClusters()
	if err != nil {
		return err
	}
	corrections, err := softcomp.CorrectClusters(ctx, model, clusters, 1)
	if err != nil {
		return err
	}
	scatter := filepath.Join(opts.outDir, "corrections.html")
	if err := writeChart(scatter, func(f io.Writer) error {
		return monitor.RenderCorrectionScatter(f, corrections, "Corrected vs raw cluster energy")
	}); err != nil {
		return err
	}
	fmt.Fprintln(w, scatter)
	return nil
}

func writeChart(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return f.Close()
}
