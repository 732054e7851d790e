// Package logging builds the slog loggers used across stereowatch.
//
// It provides a compact console handler for interactive use, a JSON handler
// for log files, attribute helper aliases so call sites stay terse, and the
// standardized field keys (component, event_type, error_hint, impact) that
// keep warnings actionable.
//
// Obtain loggers through New or NewFromConfig so every component shares the
// same output format and level handling.
package logging
