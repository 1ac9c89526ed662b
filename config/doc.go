// Package config loads the gateway configuration from defaults, an optional
// config.yaml, an optional .env file and the process environment, in that
// order of increasing precedence. The result is validated once and then
// treated as read-only for the life of the process.
package config
