// Package cmd implements the cobra command tree for krishictl: login,
// escalation triage and response, dashboard, analytics, profile and
// configuration contexts.
package cmd
