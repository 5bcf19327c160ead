package calo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxEventFileSize bounds event files read from disk.
const maxEventFileSize = 64 * 1024 * 1024

// ClusterSpec references hits by index into Event.Hits.
type ClusterSpec struct {
	Hits         []int `json:"hits" yaml:"hits"`
	IsolatedHits []int `json:"isolated_hits,omitempty" yaml:"isolated_hits,omitempty"`
	// HadronicEnergy overrides the summed hit energy when set.
	HadronicEnergy *float64 `json:"hadronic_energy,omitempty" yaml:"hadronic_energy,omitempty"`
}

// PfoSpec is a particle-flow object built from clusters (indices into Event.Clusters).
type PfoSpec struct {
	Energy   float64 `json:"energy" yaml:"energy"`
	Clusters []int   `json:"clusters" yaml:"clusters"`
}

// Event is one readout event as stored on disk.
type Event struct {
	Hits     []*CaloHit    `json:"hits" yaml:"hits"`
	Tracks   []*Track      `json:"tracks,omitempty" yaml:"tracks,omitempty"`
	Clusters []ClusterSpec `json:"clusters,omitempty" yaml:"clusters,omitempty"`
	Pfos     []PfoSpec     `json:"pfos,omitempty" yaml:"pfos,omitempty"`
}

// LoadEvent reads an event from a .json, .yaml or .yml file.
func LoadEvent(path string) (*Event, error) {
	cleanPath := filepath.Clean(path)

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat event file: %w", err)
	}
	if fileInfo.Size() > maxEventFileSize {
		return nil, fmt.Errorf("event file too large: %d bytes (max %d)", fileInfo.Size(), maxEventFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}

	ev := &Event{}
	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".json":
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, fmt.Errorf("failed to parse event JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, ev); err != nil {
			return nil, fmt.Errorf("failed to parse event YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("event file must be .json, .yaml or .yml, got %q", ext)
	}

	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return ev, nil
}

// Validate checks that every cluster and PFO index is in range.
func (ev *Event) Validate() error {
	for i, h := range ev.Hits {
		if h == nil {
			return fmt.Errorf("hit %d is null", i)
		}
	}
	for ci, c := range ev.Clusters {
		for _, idx := range append(append([]int(nil), c.Hits...), c.IsolatedHits...) {
			if idx < 0 || idx >= len(ev.Hits) {
				return fmt.Errorf("cluster %d references hit %d, have %d hits", ci, idx, len(ev.Hits))
			}
		}
	}
	for pi, p := range ev.Pfos {
		for _, idx := range p.Clusters {
			if idx < 0 || idx >= len(ev.Clusters) {
				return fmt.Errorf("pfo %d references cluster %d, have %d clusters", pi, idx, len(ev.Clusters))
			}
		}
	}
	return nil
}

// BuildClusters resolves the cluster specs against the event hits. The
// returned clusters share hit pointers with the event.
func (ev *Event) BuildClusters() ([]*Cluster, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	clusters := make([]*Cluster, 0, len(ev.Clusters))
	for i, spec := range ev.Clusters {
		hits := make([]*CaloHit, 0, len(spec.Hits))
		for _, idx := range spec.Hits {
			hits = append(hits, ev.Hits[idx])
		}
		isolated := make([]*CaloHit, 0, len(spec.IsolatedHits))
		for _, idx := range spec.IsolatedHits {
			isolated = append(isolated, ev.Hits[idx])
		}
		c := NewCluster(hits, isolated)
		c.ID = i
		if spec.HadronicEnergy != nil {
			c.HadronicEnergy = *spec.HadronicEnergy
		}
		clusters = append(clusters, c)
	}
	return clusters, nil
}
