// Package notifications delivers push notifications about mode changes and
// monitor problems via ntfy. When no topic is configured every notification
// is a no-op.
package notifications
