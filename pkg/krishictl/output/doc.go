// Package output formats krishictl results as tables, JSON or YAML.
package output
