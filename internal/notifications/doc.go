// Package notifications publishes conversion outcomes to ntfy.
//
// The ntfy topic comes from config.toml; when it is empty NewService returns
// a no-op implementation so callers never need to check whether
// notifications are enabled.
package notifications
