// Package calo holds the read-only views of calorimeter hits, tracks and
// clusters that the reconstruction algorithms operate on.
//
// Ownership stays with whoever built the event: spatial indexes and
// corrections only keep pointers and never copy or free hits.
// Key types: CaloHit, Track, OrderedCaloHitList, Cluster, Event.
package calo
