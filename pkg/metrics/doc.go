// Package metrics defines Prometheus metrics for the officer console,
// covering advisory API calls, logins, responses, the query cache, sessions,
// rate limiting and the audit trail.
package metrics
