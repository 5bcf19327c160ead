package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pflow/internal/calo"
	"github.com/banshee-data/pflow/internal/calo/training"
)

type trainOptions struct {
	eventPath   string
	dbPath      string
	treeName    string
	configPath  string
	eventNumber int64
}

func newTrainCmd() *cobra.Command {
	opts := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Record a software compensation training sample from an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.eventPath, "event", "e", "", "event file (.json, .yaml, .yml)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "training.db", "SQLite database path")
	cmd.Flags().StringVar(&opts.treeName, "tree", "", "training tree name; taken from the tuning config when empty")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "tuning config (.json); built-in defaults when empty")
	cmd.Flags().Int64Var(&opts.eventNumber, "event-number", 0, "event number stored with the record")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func runTrain(w io.Writer, opts *trainOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	tree := opts.treeName
	if tree == "" {
		tree = cfg.GetTrainingTreeName()
	}

	ev, err := calo.LoadEvent(opts.eventPath)
	if err != nil {
		return err
	}
	clusters, err := ev.BuildClusters()
	if err != nil {
		return err
	}
	pfoEnergy, cluster, ok := training.SelectSingleCluster(ev, clusters)
	if !ok {
		fmt.Fprintf(w, "%s: need exactly one PFO with one cluster, skipping\n", opts.eventPath)
		return nil
	}

	store, err := training.Open(opts.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.MigrateUp(); err != nil {
		return err
	}

	run, err := store.StartRun(tree)
	if err != nil {
		return err
	}
	rec := training.NewRecord(pfoEnergy, cluster)
	rec.RunID = run.RunID
	rec.EventNumber = opts.eventNumber
	if err := store.Insert(rec); err != nil {
		return err
	}

	fmt.Fprintf(w, "run %s (%s): record %s, %d hits, pfo %.4f GeV, raw %.4f GeV\n",
		run.RunID, run.TreeName, rec.RecordID, len(rec.HitEnergies), rec.PfoEnergy, rec.RawEnergyOfCluster)
	return nil
}
