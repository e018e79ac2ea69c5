// Package cli defines the command line flags of the officer console server,
// each with an environment variable fallback.
package cli
