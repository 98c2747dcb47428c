// Package logging builds the process-wide slog logger and defines the
// shared attribute vocabulary used across components.
package logging
