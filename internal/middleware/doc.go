// Package middleware holds the request-boundary wrappers shared by every
// gateway route: request ids, access logging with metrics, panic recovery
// and permissive CORS.
package middleware
