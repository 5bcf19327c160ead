package softcomp

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pflow/internal/calo"
	"github.com/banshee-data/pflow/internal/config"
	"github.com/banshee-data/pflow/internal/monitoring"
)

var scenarioWeights = []float64{2.49632, -0.0697302, 0.000946986, -0.112311, 0.0028182, -9.62602e-05, 0.168614, 0.224318, -0.0872853}

func newTestModel(t *testing.T, mutate func(*Parameters)) *Model {
	t.Helper()
	p := DefaultParameters()
	if mutate != nil {
		mutate(&p)
	}
	m, err := New(p, WithLogger(monitoring.Nop))
	require.NoError(t, err)
	return m
}

// hcalHit has a 100x100x10 mm cell, 0.1 dm³.
func hcalHit(id int, layer uint, energy float64) *calo.CaloHit {
	return &calo.CaloHit{
		ID: id, Layer: layer, HadronicEnergy: energy,
		HitType: calo.HCAL, Granularity: calo.Coarse,
		CellSize0: 100, CellSize1: 100, CellThickness: 10,
	}
}

func ecalHit(id int, layer uint, energy float64) *calo.CaloHit {
	return &calo.CaloHit{
		ID: id, Layer: layer, HadronicEnergy: energy,
		HitType: calo.ECAL, Granularity: calo.Fine,
		CellSize0: 5, CellSize1: 5, CellThickness: 2,
	}
}

func TestMakeEnergyCorrection_SingleHCALHit(t *testing.T) {
	m := newTestModel(t, nil)
	hit := hcalHit(0, 5, 1.0)

	rho, err := m.Binning().ComputeDensity(hit)
	require.NoError(t, err)
	assert.InDelta(t, 11.25, rho, 1e-12)

	const e = 1.0
	w := scenarioWeights
	p1 := w[0] + w[1]*e + w[2]*e*e
	p2 := w[3] + w[4]*e + w[5]*e*e
	p3 := w[6] / (w[7] + math.Exp(w[8]*e))
	want := 1.0 * (p1*math.Exp(p2*11.25) + p3)

	got, err := m.MakeEnergyCorrection(calo.NewCluster([]*calo.CaloHit{hit}, nil))
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)

	c := m.Coefficients(e)
	assert.InDelta(t, p1, c.P1, 1e-15)
	assert.InDelta(t, p2, c.P2, 1e-15)
	assert.InDelta(t, p3, c.P3, 1e-15)
}

func TestMakeEnergyCorrection_ZeroHits(t *testing.T) {
	m := newTestModel(t, nil)

	got, err := m.MakeEnergyCorrection(calo.NewCluster(nil, nil))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	// Isolated hits alone do not count as calo hits.
	onlyIsolated := calo.NewCluster(nil, []*calo.CaloHit{hcalHit(1, 3, 2)})
	got, err = m.MakeEnergyCorrection(onlyIsolated)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestMakeEnergyCorrection_NilCluster(t *testing.T) {
	m := newTestModel(t, nil)
	_, err := m.MakeEnergyCorrection(nil)
	assert.ErrorIs(t, err, ErrNilCluster)
}

func TestMakeEnergyCorrection_ZeroClusterEnergy(t *testing.T) {
	m := newTestModel(t, nil)
	c := calo.NewCluster([]*calo.CaloHit{ecalHit(0, 1, 0)}, nil)

	_, err := m.MakeEnergyCorrection(c)
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestMakeEnergyCorrection_ZeroCellVolume(t *testing.T) {
	m := newTestModel(t, nil)
	hit := hcalHit(0, 2, 1)
	hit.CellThickness = 0

	_, err := m.MakeEnergyCorrection(calo.NewCluster([]*calo.CaloHit{hit}, nil))
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestMakeEnergyCorrection_NegativeHitEnergy(t *testing.T) {
	m := newTestModel(t, nil)
	c := calo.NewCluster([]*calo.CaloHit{hcalHit(0, 2, 5.0), hcalHit(1, 3, -0.01)}, nil)
	c.ID = 4

	corrected, err := m.MakeEnergyCorrection(c)
	assert.ErrorIs(t, err, ErrArithmetic)
	assert.Zero(t, corrected)

	res, err := CorrectClusters(context.Background(), m, []*calo.Cluster{c}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.ErrorIs(t, res[0].Err, ErrArithmetic)
	assert.InDelta(t, 4.99, res[0].Corrected, 1e-12, "raw energy kept")
}

func TestMakeEnergyCorrection_IncludesIsolatedHits(t *testing.T) {
	m := newTestModel(t, nil)
	layered := hcalHit(0, 4, 1)
	isolated := hcalHit(1, 9, 1)
	c := calo.NewCluster([]*calo.CaloHit{layered}, []*calo.CaloHit{isolated})
	require.InDelta(t, 2.0, c.HadronicEnergy, 1e-12)

	got, err := m.MakeEnergyCorrection(c)
	require.NoError(t, err)
	assert.InDelta(t, 2*m.Weight(2, 11.25), got, 1e-12)
}

func TestMakeEnergyCorrection_AboveCeilingKeepsEstimate(t *testing.T) {
	m := newTestModel(t, func(p *Parameters) { p.MaxClusterEnergyToApplySoftComp = 10 })
	c := calo.NewCluster([]*calo.CaloHit{hcalHit(0, 1, 15)}, nil)

	got, err := m.MakeEnergyCorrection(c)
	require.NoError(t, err)
	assert.Equal(t, 15.0, got)
}

func TestMakeEnergyCorrection_NonHCALUnweighted(t *testing.T) {
	m := newTestModel(t, nil)
	muon := &calo.CaloHit{ID: 0, Layer: 1, HadronicEnergy: 0.3, HitType: calo.MUON}
	ecal := ecalHit(1, 1, 0.2)
	c := calo.NewCluster([]*calo.CaloHit{muon, ecal}, nil)

	got, err := m.MakeEnergyCorrection(c)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-12)
}

func TestDensityBinning_Bin(t *testing.T) {
	b, err := NewDensityBinning([]float64{0, 2, 5, 7.5, 9.5, 13, 16, 20, 23.5, 28}, 30)
	require.NoError(t, err)

	tests := []struct {
		density float64
		want    float64
	}{
		{0, 1},
		{1.999, 1},
		{2, 3.5},
		{10, 11.25},
		{27.999, 25.75},
		{28, 30},
		{1e9, 30},
	}
	for _, tt := range tests {
		got, err := b.Bin(tt.density)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "density %g", tt.density)
	}

	_, err = b.Bin(-0.1)
	assert.ErrorIs(t, err, ErrArithmetic)
	_, err = b.Bin(math.NaN())
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestDensityBinning_TotalCoverage(t *testing.T) {
	edges := []float64{0, 2, 5, 7.5, 9.5, 13, 16, 20, 23.5, 28}
	b, err := NewDensityBinning(edges, 30)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 10000; n++ {
		d := rng.Float64() * 28
		got, err := b.Bin(d)
		require.NoError(t, err)

		matches := 0
		for i := 0; i+1 < len(edges); i++ {
			if d >= edges[i] && d < edges[i+1] {
				matches++
				assert.Equal(t, (edges[i]+edges[i+1])/2, got)
			}
		}
		require.Equal(t, 1, matches, "density %g", d)
	}
}

func TestDensityBinning_Midpoints(t *testing.T) {
	b, err := NewDensityBinning([]float64{0, 2, 6}, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4, 10}, b.Midpoints())

	single, err := NewDensityBinning([]float64{0}, 0)
	require.NoError(t, err)
	got, err := single.Bin(3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestRawDensity(t *testing.T) {
	d, err := RawDensity(hcalHit(0, 0, 2.5))
	require.NoError(t, err)
	assert.InDelta(t, 25, d, 1e-9)

	flat := hcalHit(0, 0, 1)
	flat.CellSize1 = 0
	_, err = RawDensity(flat)
	assert.ErrorIs(t, err, ErrArithmetic)

	inverted := hcalHit(0, 0, 1)
	inverted.CellSize0 = -100
	_, err = RawDensity(inverted)
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Parameters)
	}{
		{"eight weights", func(p *Parameters) { p.Weights = p.Weights[:8] }},
		{"nan weight", func(p *Parameters) { p.Weights[3] = math.NaN() }},
		{"no bins", func(p *Parameters) { p.DensityBins = nil }},
		{"first edge not zero", func(p *Parameters) { p.DensityBins = []float64{1, 2, 3} }},
		{"negative edge", func(p *Parameters) { p.DensityBins = []float64{-1, 2, 3} }},
		{"unsorted", func(p *Parameters) { p.DensityBins = []float64{0, 5, 2} }},
		{"repeated edge", func(p *Parameters) { p.DensityBins = []float64{0, 2, 2, 5} }},
		{"final below last edge", func(p *Parameters) { p.FinalBin = 20 }},
		{"negative min clean energy", func(p *Parameters) { p.MinCleanHitEnergy = -1 }},
		{"negative fraction", func(p *Parameters) { p.MinCleanHitEnergyFraction = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.mutate(&p)
			m, err := New(p)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Nil(t, m)
		})
	}
}

func TestNew_CopiesParameters(t *testing.T) {
	p := DefaultParameters()
	m, err := New(p, WithLogger(monitoring.Nop))
	require.NoError(t, err)

	p.Weights[0] = 100
	p.DensityBins[1] = 100
	assert.Equal(t, 2.49632, m.Parameters().Weights[0])
	assert.Equal(t, 2.0, m.Binning().Edges()[1])
}

func TestParametersFromConfig_DefaultsFile(t *testing.T) {
	assert.Equal(t, DefaultParameters(), ParametersFromConfig(config.MustLoadDefaultConfig()))
	assert.Equal(t, scenarioWeights, DefaultParameters().Weights)
}

func TestSumEnergyInLayer(t *testing.T) {
	list := calo.NewOrderedCaloHitList([]*calo.CaloHit{
		ecalHit(0, 1, 0.5), ecalHit(1, 1, 0.25), ecalHit(2, 3, 2),
	})
	assert.InDelta(t, 0.75, SumEnergyInLayer(list, 1), 1e-12)
	assert.Equal(t, 2.0, SumEnergyInLayer(list, 3))
	assert.Equal(t, 0.0, SumEnergyInLayer(list, 2))
	assert.Equal(t, 0.0, SumEnergyInLayer(nil, 0))
}

func TestCleanCluster(t *testing.T) {
	tests := []struct {
		name    string
		ipLayer uint
		hits    []*calo.CaloHit
		start   float64
		want    float64
	}{
		{
			name:    "spike between quiet layers",
			ipLayer: 0,
			hits:    []*calo.CaloHit{ecalHit(0, 0, 1), ecalHit(1, 1, 5), ecalHit(2, 2, 1)},
			start:   7,
			want:    3,
		},
		{
			name:    "adjacent layers averaged",
			ipLayer: 0,
			hits:    []*calo.CaloHit{ecalHit(0, 0, 3), ecalHit(1, 1, 5), ecalHit(2, 2, 1)},
			start:   9,
			want:    6,
		},
		{
			name:    "first layer uses next layer undivided",
			ipLayer: 1,
			hits:    []*calo.CaloHit{ecalHit(0, 0, 3), ecalHit(1, 1, 5), ecalHit(2, 2, 1)},
			start:   9,
			want:    5,
		},
		{
			name:    "floored at min corrected energy",
			ipLayer: 0,
			hits:    []*calo.CaloHit{ecalHit(0, 4, 6)},
			start:   6,
			want:    0.1,
		},
		{
			name:    "below absolute floor",
			ipLayer: 0,
			hits:    []*calo.CaloHit{ecalHit(0, 4, 0.4)},
			start:   0.4,
			want:    0.4,
		},
		{
			name:    "hcal hits ignored",
			ipLayer: 0,
			hits:    []*calo.CaloHit{hcalHit(0, 4, 6)},
			start:   6,
			want:    6,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, func(p *Parameters) { p.PseudoLayerAtIP = tt.ipLayer })
			c := calo.NewCluster(tt.hits, nil)
			got, err := m.CleanCluster(c, tt.start)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestCleanCluster_CoarseHitStopsCleaning(t *testing.T) {
	m := newTestModel(t, nil)
	coarse := ecalHit(0, 0, 1)
	coarse.Granularity = calo.Coarse
	c := calo.NewCluster([]*calo.CaloHit{coarse, ecalHit(1, 1, 5), ecalHit(2, 2, 1)}, nil)

	got, err := m.CleanCluster(c, 7)
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)

	// A coarse hit after the spike does not undo earlier cleaning.
	late := ecalHit(2, 2, 1)
	late.Granularity = calo.VeryCoarse
	c = calo.NewCluster([]*calo.CaloHit{ecalHit(0, 0, 1), ecalHit(1, 1, 5), late}, nil)
	got, err = m.CleanCluster(c, 7)
	require.NoError(t, err)
	assert.InDelta(t, 3, got, 1e-12)
}

func TestCleanCluster_NeverIncreases(t *testing.T) {
	m := newTestModel(t, nil)
	rng := rand.New(rand.NewSource(99))

	for n := 0; n < 500; n++ {
		var hits []*calo.CaloHit
		for i := 0; i < 1+rng.Intn(30); i++ {
			h := ecalHit(i, uint(rng.Intn(8)), rng.Float64()*10)
			if rng.Intn(4) == 0 {
				h = hcalHit(i, uint(rng.Intn(8)), rng.Float64()*10)
			}
			hits = append(hits, h)
		}
		c := calo.NewCluster(hits, nil)
		afterA, err := m.SoftComp(c.HadronicEnergy, c.AllCaloHits())
		require.NoError(t, err)
		afterB, err := m.CleanCluster(c, afterA)
		require.NoError(t, err)
		require.LessOrEqual(t, afterB, afterA)
	}
}

func TestCleanCluster_CountsCleanedHits(t *testing.T) {
	m := newTestModel(t, nil)
	before := testutil.ToFloat64(monitoring.CleanedHitsTotal)

	c := calo.NewCluster([]*calo.CaloHit{ecalHit(0, 0, 1), ecalHit(1, 1, 5), ecalHit(2, 2, 1)}, nil)
	_, err := m.CleanCluster(c, 7)
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(monitoring.CleanedHitsTotal))
}

func TestClassifyContainment(t *testing.T) {
	muon := &calo.CaloHit{HitType: calo.MUON}
	tests := []struct {
		name string
		hits []*calo.CaloHit
		want Containment
	}{
		{"empty", nil, ContainmentNone},
		{"muon only", []*calo.CaloHit{muon}, ContainmentNone},
		{"ecal", []*calo.CaloHit{ecalHit(0, 0, 1)}, ECALOnly},
		{"hcal", []*calo.CaloHit{hcalHit(0, 0, 1), nil}, HCALOnly},
		{"both", []*calo.CaloHit{ecalHit(0, 0, 1), hcalHit(1, 0, 1)}, Mixed},
		{"hcal and muon", []*calo.CaloHit{hcalHit(0, 0, 1), muon}, Mixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyContainment(tt.hits))
		})
	}
	assert.Equal(t, "hcal_only", HCALOnly.String())
}

func batchClusters() []*calo.Cluster {
	broken := hcalHit(10, 1, 1)
	broken.CellSize0 = 0
	var clusters []*calo.Cluster
	for i := 0; i < 20; i++ {
		var c *calo.Cluster
		if i == 7 {
			c = calo.NewCluster([]*calo.CaloHit{broken}, nil)
		} else {
			c = calo.NewCluster([]*calo.CaloHit{hcalHit(i, 1, float64(i+1)), ecalHit(100+i, 0, 0.3)}, nil)
		}
		c.ID = i
		clusters = append(clusters, c)
	}
	return clusters
}

func TestCorrectClusters(t *testing.T) {
	m := newTestModel(t, nil)
	clusters := batchClusters()

	seq, err := CorrectClusters(context.Background(), m, clusters, 1)
	require.NoError(t, err)
	require.Len(t, seq, len(clusters))

	for i, res := range seq {
		assert.Equal(t, i, res.ClusterID)
		if i == 7 {
			assert.ErrorIs(t, res.Err, ErrArithmetic)
			assert.Equal(t, res.Raw, res.Corrected)
			continue
		}
		require.NoError(t, res.Err)
		want, err := m.MakeEnergyCorrection(clusters[i])
		require.NoError(t, err)
		assert.Equal(t, want, res.Corrected)
	}

	par, err := CorrectClusters(context.Background(), m, clusters, 4)
	require.NoError(t, err)
	require.Len(t, par, len(seq))
	for i := range seq {
		assert.Equal(t, seq[i].ClusterID, par[i].ClusterID)
		assert.Equal(t, seq[i].Corrected, par[i].Corrected)
		assert.Equal(t, seq[i].Err != nil, par[i].Err != nil)
	}
}

func TestCorrectClusters_NilClusterAndCancel(t *testing.T) {
	m := newTestModel(t, nil)

	res, err := CorrectClusters(context.Background(), m, []*calo.Cluster{nil}, 1)
	require.NoError(t, err)
	assert.True(t, errors.Is(res[0].Err, ErrNilCluster))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CorrectClusters(ctx, m, batchClusters(), 1)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = CorrectClusters(ctx, m, batchClusters(), 4)
	assert.ErrorIs(t, err, context.Canceled)
}
