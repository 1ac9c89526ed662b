// Package healthcheck periodically probes the upstream base URL and reports
// reachability changes to the log and the metrics collector. It is purely
// observational: routing never consults the result.
package healthcheck
