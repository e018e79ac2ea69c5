// Package api implements the console's HTTP server (Gin-based): request
// logging and recovery, health and readiness probes, static assets, the
// frontend config and version endpoints, and registration of the page
// controllers.
package api
