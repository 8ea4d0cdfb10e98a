// Package main hosts the polarconv CLI entrypoint and command graph.
//
// The convert command plays the role of the host screen: it attaches the
// conversion trigger's button to a console layout, presses it once on the UI
// loop, and prints the outcome toast when the trigger hands it back. The
// remaining commands inspect containers, list conversion history, scaffold
// configuration, and test notifications.
package main
