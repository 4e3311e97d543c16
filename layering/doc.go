// Package layering merges layered values ordered from strongest to weakest.
//
// Spread is a shallow overlay: it mirrors object spread, where the last
// writer of a field wins and nested values are shared. MergeLayers is a deep
// merge that recurses into maps, structs and pointers. Clone produces a
// detached deep copy.
package layering
