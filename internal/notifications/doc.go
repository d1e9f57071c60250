// Package notifications delivers batch events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The batch runner depends only on the Service interface, so
// alternative transports slot in without touching workflow code.
package notifications
