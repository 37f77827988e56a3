// Package logger builds the application's slog logger: JSON records in
// production, human-readable text elsewhere, always tagged with the
// environment. Logs go to stderr so command output on stdout stays clean.
package logger
