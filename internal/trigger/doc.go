// Package trigger turns a UI action into exactly one background conversion
// and exactly one outcome delivered back on the UI goroutine.
//
// While a conversion is running the trigger's button is disabled and
// relabelled, and further activations are ignored. The background goroutine
// never touches the button; all control updates happen in the single task
// posted to the UI dispatcher when the run finishes.
package trigger
