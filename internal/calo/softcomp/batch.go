package softcomp

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/pflow/internal/calo"
)

// Correction is the outcome for one cluster. When Err is set, Corrected
// equals Raw.
type Correction struct {
	ClusterID int
	Raw       float64
	Corrected float64
	Err       error
}

// CorrectClusters applies MakeEnergyCorrection to every cluster. Per-cluster
// failures are reported in Correction.Err; only cancellation of ctx fails the
// batch. Results are in input order. workers <= 1 runs sequentially.
func CorrectClusters(ctx context.Context, m *Model, clusters []*calo.Cluster, workers int) ([]Correction, error) {
	out := make([]Correction, len(clusters))

	correct := func(i int) {
		c := clusters[i]
		if c == nil {
			out[i] = Correction{ClusterID: -1, Err: ErrNilCluster}
			return
		}
		res := Correction{ClusterID: c.ID, Raw: c.HadronicEnergy}
		corrected, err := m.MakeEnergyCorrection(c)
		if err != nil {
			m.logf("[SoftComp] cluster %d: keeping raw energy: %v", c.ID, err)
			res.Corrected = res.Raw
			res.Err = err
		} else {
			res.Corrected = corrected
		}
		out[i] = res
	}

	if workers <= 1 {
		for i := range clusters {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			correct(i)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range clusters {
		if err := gctx.Err(); err != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			correct(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
