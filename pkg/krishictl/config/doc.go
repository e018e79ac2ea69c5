// Package config reads and writes the krishictl contexts file.
package config
