package calo

// Cluster is a group of hits with a current hadronic energy estimate.
// Isolated hits contribute energy but are kept out of the layer structure.
type Cluster struct {
	ID             int
	OrderedHits    OrderedCaloHitList
	IsolatedHits   []*CaloHit
	HadronicEnergy float64
}

// NewCluster builds a cluster whose hadronic energy is the sum over all of
// its hits, isolated ones included.
func NewCluster(hits, isolated []*CaloHit) *Cluster {
	c := &Cluster{
		OrderedHits:  NewOrderedCaloHitList(hits),
		IsolatedHits: isolated,
	}
	for _, h := range c.AllCaloHits() {
		c.HadronicEnergy += h.HadronicEnergy
	}
	return c
}

// NCaloHits returns the number of hits in the layer structure. Isolated hits
// are not counted.
func (c *Cluster) NCaloHits() int {
	return c.OrderedHits.Len()
}

// AllCaloHits returns layered hits (ascending layer) followed by isolated hits.
func (c *Cluster) AllCaloHits() []*CaloHit {
	out := c.OrderedHits.AllHits()
	for _, h := range c.IsolatedHits {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// InnerPseudoLayer returns the first occupied layer, or false for an empty cluster.
func (c *Cluster) InnerPseudoLayer() (uint, bool) {
	layers := c.OrderedHits.Layers()
	if len(layers) == 0 {
		return 0, false
	}
	return layers[0], true
}
