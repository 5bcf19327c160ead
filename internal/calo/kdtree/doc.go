// Package kdtree implements a static, bulk-built k-d tree whose nodes carry
// the axis-aligned box enclosing their subtree, answering "every point inside
// this box" queries.
//
// Trees are built once from a flat slice and never mutated; rebuild when the
// underlying point set changes. Nodes live in a single arena slice addressed by
// index. The tree keeps payload values (typically pointers) but never owns
// what they point to.
//
// Two shapes are used by the reconstruction: 3D (x, y, z) for tracks and 4D
// (x, y, z, pseudolayer) for calorimeter hits.
package kdtree
