// Package anvil reads every chunk of an Anvil (region file) world into a
// world.Snapshot.
//
// Region headers and sectors are handled by go-mc's save/region package and
// chunk payloads are decoded with go-mc's nbt package. Only the 1.18+ chunk
// layout is understood; proto chunks are skipped and legacy chunks are
// rejected.
package anvil
