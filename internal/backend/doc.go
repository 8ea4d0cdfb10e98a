// Package backend starts and stops the backing service a conversion needs.
//
// A started Handle owns an exclusive flock on <state_dir>/backend.lock, the
// block-state registry, the Anvil reader bound to it, and the Polar encoder.
// Handles are created per run and never stored globally; Stop releases
// everything and may be called any number of times.
package backend
