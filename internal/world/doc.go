// Package world holds the in-memory representation of a converted world.
//
// A Snapshot is produced by the Anvil reader and consumed by the Polar
// encoder within a single conversion run. Block states and biomes are stored
// as canonical strings resolved through a Registry, which lives for the
// duration of one backing-service session.
package world
