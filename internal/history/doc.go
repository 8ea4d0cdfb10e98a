// Package history persists one row per conversion run in a SQLite database
// under the state directory, so past outcomes can be listed after the UI
// has shown and dismissed them.
package history
