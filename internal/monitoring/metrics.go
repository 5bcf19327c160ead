package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CorrectionsTotal counts energy corrections by containment and result.
	CorrectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pflow_softcomp_corrections_total",
		Help: "Software compensation corrections by cluster containment and result",
	}, []string{"containment", "result"})

	// CorrectionRatio tracks corrected/raw hadronic energy per cluster.
	CorrectionRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pflow_softcomp_correction_ratio",
		Help:    "Ratio of corrected to raw cluster hadronic energy",
		Buckets: []float64{0.5, 0.75, 0.9, 1.0, 1.1, 1.25, 1.5, 2.0},
	})

	// CleanedHitsTotal counts ECAL hits whose energy was reduced by cluster cleaning.
	CleanedHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pflow_softcomp_cleaned_hits_total",
		Help: "Hits whose hadronic energy was reduced by outlier cleaning",
	})

	// FlaggedHitsTotal counts hits flagged by hit preparation, by flag.
	FlaggedHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pflow_hitprep_flagged_hits_total",
		Help: "Calorimeter hits flagged during hit preparation",
	}, []string{"flag"})

	// SearchResults tracks the number of candidates returned per spatial query.
	SearchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pflow_hitprep_search_results",
		Help:    "Candidates returned per k-d tree region query",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})
)
