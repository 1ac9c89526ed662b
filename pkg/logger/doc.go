// Package logger builds the gateway's structured logger on top of log/slog.
// Development and staging environments get human readable text output,
// production gets one JSON object per line.
package logger
