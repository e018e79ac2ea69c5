// Package config loads the officer console configuration from a YAML file,
// an optional dotenv file and environment overrides.
package config
