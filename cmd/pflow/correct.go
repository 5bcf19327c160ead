package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pflow/internal/calo"
	"github.com/banshee-data/pflow/internal/calo/monitor"
	"github.com/banshee-data/pflow/internal/calo/softcomp"
)

type correctOptions struct {
	eventPath  string
	configPath string
	workers    int
	jsonOut    string
}

// correctionRow is the JSON form of one cluster correction.
type correctionRow struct {
	ClusterID   int     `json:"cluster_id"`
	Containment string  `json:"containment"`
	Raw         float64 `json:"raw"`
	Corrected   float64 `json:"corrected"`
	Error       string  `json:"error,omitempty"`
}

type correctionReport struct {
	Event    string          `json:"event"`
	Clusters []correctionRow `json:"clusters"`
	Summary  monitor.Summary `json:"summary"`
}

func newCorrectCmd() *cobra.Command {
	opts := &correctOptions{}
	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Apply software compensation to every cluster of an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorrect(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.eventPath, "event", "e", "", "event file (.json, .yaml, .yml)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "tuning config (.json); built-in defaults when empty")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 1, "clusters corrected in parallel")
	cmd.Flags().StringVar(&opts.jsonOut, "json", "", "also write the report as JSON to this path")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func runCorrect(ctx context.Context, w io.Writer, opts *correctOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	model, err := softcomp.New(softcomp.ParametersFromConfig(cfg))
	if err != nil {
		return err
	}
	ev, err := calo.LoadEvent(opts.eventPath)
	if err != nil {
		return err
	}
	clusters, err := ev.BuildClusters()
	if err != nil {
		return err
	}

	corrections, err := softcomp.CorrectClusters(ctx, model, clusters, opts.workers)
	if err != nil {
		return fmt.Errorf("correct clusters: %w", err)
	}

	report := correctionReport{Event: opts.eventPath, Clusters: make([]correctionRow, 0, len(corrections))}
	raw := make([]float64, 0, len(corrections))
	corrected := make([]float64, 0, len(corrections))
	for i, c := range corrections {
		row := correctionRow{
			ClusterID:   c.ClusterID,
			Containment: softcomp.ClassifyContainment(clusters[i].AllCaloHits()).String(),
			Raw:         c.Raw,
			Corrected:   c.Corrected,
		}
		if c.Err != nil {
			row.Error = c.Err.Error()
		}
		report.Clusters = append(report.Clusters, row)
		raw = append(raw, c.Raw)
		corrected = append(corrected, c.Corrected)

		fmt.Fprintf(w, "cluster %3d  %-9s  raw %10.4f  corrected %10.4f", row.ClusterID, row.Containment, row.Raw, row.Corrected)
		if row.Error != "" {
			fmt.Fprintf(w, "  (%s)", row.Error)
		}
		fmt.Fprintln(w)
	}

	report.Summary, err = monitor.Summarize(raw, corrected)
	if err != nil {
		return err
	}
	s := report.Summary
	fmt.Fprintf(w, "clusters: %d\n", s.N)
	fmt.Fprintf(w, "raw:       mean %.4f  stddev %.4f\n", s.RawMean, s.RawStdDev)
	fmt.Fprintf(w, "corrected: mean %.4f  stddev %.4f\n", s.CorrectedMean, s.CorrectedStdDev)
	fmt.Fprintf(w, "mean ratio: %.4f\n", s.MeanRatio)

	if opts.jsonOut == "" {
		return nil
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(opts.jsonOut, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
