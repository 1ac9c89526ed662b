// Package httpserver wraps http.Server with address validation, an explicit
// bind step that reports listen failures as *BindError, and graceful shutdown.
package httpserver
