// Package polar serializes world snapshots into the Polar container format
// and reads containers back for inspection.
//
// A container is a small fixed header (magic, version, data version,
// compression) followed by a payload holding every chunk. Primitive values
// use Minecraft's network encoding, written through go-mc's net/packet
// types; the payload is optionally compressed with zstd.
package polar
