// Package upstream forwards requests to the single backend service behind
// the gateway.
//
// Forwarding contract: method, body, query string and every end-to-end
// header pass through untouched; ngrok-skip-browser-warning: true is set on
// the outbound request; the outbound Host header names the upstream rather
// than the caller; upstream certificates are not verified. The upstream's
// status, headers and body go back to the caller as received. Connection
// failures produce the reverse proxy's stock 502 and are never retried.
package upstream
