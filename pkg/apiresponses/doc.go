// Package apiresponses provides the JSON error envelope used by the console's
// machine-facing endpoints (health, config, version, rate limiting) and the
// mapping from advisory API failures to console status codes.
package apiresponses
