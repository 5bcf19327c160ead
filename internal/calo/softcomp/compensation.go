package softcomp

import (
	"fmt"
	"math"

	"github.com/banshee-data/pflow/internal/calo"
	"github.com/banshee-data/pflow/internal/monitoring"
)

// minClusterEnergy is the smallest |cluster energy| cleaning can normalise
// by (single-precision epsilon).
const minClusterEnergy = 1.1920929e-07

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the diagnostic logger. Nil selects monitoring.Logf.
func WithLogger(l monitoring.Logger) Option {
	return func(m *Model) { m.logf = monitoring.Resolve(l) }
}

// Model applies software compensation to clusters. It is immutable after
// New and safe for concurrent use.
type Model struct {
	params Parameters
	bins   *DensityBinning
	logf   monitoring.Logger
}

// New validates p and returns a Model. Invalid parameters return an error
// wrapping ErrConfiguration and a nil Model.
func New(p Parameters, opts ...Option) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	bins, err := NewDensityBinning(p.DensityBins, p.FinalBin)
	if err != nil {
		return nil, err
	}
	m := &Model{params: p.Clone(), bins: bins, logf: monitoring.Resolve(nil)}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Parameters returns a copy of the model parameters.
func (m *Model) Parameters() Parameters { return m.params.Clone() }

// Binning returns the density binning.
func (m *Model) Binning() *DensityBinning { return m.bins }

// Coefficients are the energy-dependent terms of the weight function.
type Coefficients struct {
	P1, P2, P3 float64
}

// Coefficients evaluates p1, p2 and p3 at cluster energy e.
func (m *Model) Coefficients(e float64) Coefficients {
	w := m.params.Weights
	return Coefficients{
		P1: w[0] + w[1]*e + w[2]*e*e,
		P2: w[3] + w[4]*e + w[5]*e*e,
		P3: w[6] / (w[7] + math.Exp(w[8]*e)),
	}
}

// Weight returns p1*exp(p2*rho) + p3.
func (c Coefficients) Weight(rho float64) float64 {
	return c.P1*math.Exp(c.P2*rho) + c.P3
}

// Weight is the HCAL hit weight at cluster energy e and quantised density rho.
func (m *Model) Weight(e, rho float64) float64 {
	return m.Coefficients(e).Weight(rho)
}

// SoftComp re-sums hits with HCAL hits weighted by their density. Other hits
// contribute their raw hadronic energy.
func (m *Model) SoftComp(e float64, hits []*calo.CaloHit) (float64, error) {
	coeff := m.Coefficients(e)
	sum := 0.0
	for _, h := range hits {
		if h.HitType != calo.HCAL {
			sum += h.HadronicEnergy
			continue
		}
		rho, err := m.bins.ComputeDensity(h)
		if err != nil {
			return 0, err
		}
		sum += h.HadronicEnergy * coeff.Weight(rho)
	}
	if !isFinite(sum) {
		return 0, fmt.Errorf("%w: weighted energy %g at cluster energy %g", ErrArithmetic, sum, e)
	}
	return sum, nil
}

// CleanCluster lowers corrected for ECAL hits that carry more energy than
// their neighbouring layers suggest, and returns the new value. It never
// returns more than corrected.
//
// Layers are walked in ascending order and the first ECAL hit coarser than
// Fine stops cleaning for all later layers. The adjacent-layer energy is
// halved only when a previous layer can exist (layer above PseudoLayerAtIP);
// at the first layer the next layer's energy is used undivided.
func (m *Model) CleanCluster(c *calo.Cluster, corrected float64) (float64, error) {
	clusterEnergy := c.HadronicEnergy
	if math.Abs(clusterEnergy) < minClusterEnergy {
		return corrected, fmt.Errorf("%w: cluster %d hadronic energy %g", ErrArithmetic, c.ID, clusterEnergy)
	}

	p := m.params
	list := c.OrderedHits
	for _, layer := range list.Layers() {
		for _, h := range list[layer] {
			if h.HitType != calo.ECAL {
				continue
			}
			if h.Granularity > calo.Fine {
				m.logf("[SoftComp] cluster %d: stop cleaning at layer %d, granularity %s", c.ID, layer, h.Granularity)
				return corrected, nil
			}

			hitEnergy := h.HadronicEnergy
			if hitEnergy <= p.MinCleanHitEnergy || hitEnergy/clusterEnergy <= p.MinCleanHitEnergyFraction {
				continue
			}

			hasPrevious := layer > p.PseudoLayerAtIP
			previous := 0.0
			if hasPrevious {
				previous = SumEnergyInLayer(list, layer-1)
			}
			next := 0.0
			if layer < math.MaxUint {
				next = SumEnergyInLayer(list, layer+1)
			}
			adjacent := previous + next
			if hasPrevious {
				adjacent /= 2
			}

			current := SumEnergyInLayer(list, layer)
			newEnergy := math.Max(adjacent-current+hitEnergy, p.MinCleanCorrectedHitEnergy)
			if newEnergy < hitEnergy {
				corrected += newEnergy - hitEnergy
				monitoring.CleanedHitsTotal.Inc()
			}
		}
	}
	return corrected, nil
}

// MakeEnergyCorrection returns the compensated hadronic energy of c. A
// cluster without layered hits yields 0. On error the caller should keep
// the raw energy.
func (m *Model) MakeEnergyCorrection(c *calo.Cluster) (float64, error) {
	if c == nil {
		return 0, ErrNilCluster
	}
	if c.NCaloHits() == 0 {
		return 0, nil
	}

	hits := c.AllCaloHits()
	label := ClassifyContainment(hits).String()
	e := c.HadronicEnergy

	corrected := e
	if e <= m.params.MaxClusterEnergyToApplySoftComp {
		var err error
		corrected, err = m.SoftComp(e, hits)
		if err != nil {
			monitoring.CorrectionsTotal.WithLabelValues(label, "error").Inc()
			return 0, fmt.Errorf("cluster %d: %w", c.ID, err)
		}
	} else {
		m.logf("[SoftComp] cluster %d: energy %.3f above %.3f, weights not applied", c.ID, e, m.params.MaxClusterEnergyToApplySoftComp)
	}

	cleaned, err := m.CleanCluster(c, corrected)
	if err != nil {
		monitoring.CorrectionsTotal.WithLabelValues(label, "error").Inc()
		return 0, err
	}

	monitoring.CorrectionsTotal.WithLabelValues(label, "ok").Inc()
	if e > 0 {
		monitoring.CorrectionRatio.Observe(cleaned / e)
	}
	return cleaned, nil
}
