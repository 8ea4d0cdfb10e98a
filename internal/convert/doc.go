// Package convert runs one Anvil to Polar conversion from start to finish.
//
// A Pipeline starts the backing runtime, reads every chunk of the source
// world, encodes the snapshot, and writes the container atomically. Each run
// produces exactly one Outcome; the runtime is stopped on every path before
// the outcome is returned. Failures are classified with the sentinel markers
// in errors.go and never escape as errors.
package convert
