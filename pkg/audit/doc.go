// Package audit records what officers do in the console (logins, logouts,
// expired sessions, escalation responses and profile changes) and forwards
// the events to configurable sinks (log, webhook, Kafka) through a
// non-blocking queue, with circuit breaker protection for remote sinks.
package audit
