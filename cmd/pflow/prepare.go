package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pflow/internal/calo"
	"github.com/banshee-data/pflow/internal/calo/hitprep"
)

type prepareOptions struct {
	eventPath  string
	configPath string
}

func newPrepareCmd() *cobra.Command {
	opts := &prepareOptions{}
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Flag isolated and MIP-like hits of an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrepare(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.eventPath, "event", "e", "", "event file (.json, .yaml, .yml)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "tuning config (.json); built-in defaults when empty")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func runPrepare(ctx context.Context, w io.Writer, opts *prepareOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	ev, err := calo.LoadEvent(opts.eventPath)
	if err != nil {
		return err
	}
	p, err := hitprep.New(hitprep.SettingsFromConfig(cfg))
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, ev.Hits)
	if err != nil {
		return fmt.Errorf("hit preparation: %w", err)
	}
	caloHits, muonHits := calo.SplitMuonHits(ev.Hits)

	fmt.Fprintf(w, "hits:         %d (calo %d, muon %d)\n", res.NHits, len(caloHits), len(muonHits))
	fmt.Fprintf(w, "layers:       %d\n", res.NLayers)
	fmt.Fprintf(w, "isolated:     %d\n", res.NIsolated)
	fmt.Fprintf(w, "possible MIP: %d\n", res.NPossibleMip)

	radius := cfg.GetCaloHitMaxSeparation()
	tracks := calo.ClusteringTracks(ev.Tracks)
	counts := hitprep.TrackHitCounts(tracks, caloHits, radius)
	for _, t := range tracks {
		fmt.Fprintf(w, "track %d: %d hits within %g mm\n", t.ID, counts[t.ID], radius)
	}
	return nil
}
