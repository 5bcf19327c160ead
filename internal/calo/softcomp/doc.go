// Package softcomp implements density-based software compensation of
// cluster hadronic energy.
//
// Each HCAL hit is re-weighted by a function of its quantised energy density
// and of the cluster energy estimate (Pass A). ECAL hits that stand out
// against their neighbouring layers are then trimmed back (Pass B). Pass B
// only ever lowers the Pass A result.
//
// Energies are in GeV, cell dimensions in mm and densities in GeV/dm³.
package softcomp
