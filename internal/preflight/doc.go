// Package preflight provides readiness checks for the filesystem paths,
// backend lock, and optional integrations that polarconv depends on.
//
// The CLI "polarconv doctor" command runs RunAll and renders each Result.
// Checks for optional features (ntfy, the folder opener) are skipped or
// reported as optional when the feature is disabled.
package preflight
