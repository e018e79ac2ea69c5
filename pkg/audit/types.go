package audit

import (
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	// === Officer authentication events ===
	EventOfficerLogin       EventType = "officer.login"
	EventOfficerLoginFailed EventType = "officer.login_failed"
	EventOfficerLogout      EventType = "officer.logout"

	// EventSessionExpired is emitted when the advisory API rejects the
	// session token with 401.
	EventSessionExpired EventType = "session.expired"

	// === Escalation events ===
	EventEscalationResponded     EventType = "escalation.responded"
	EventEscalationRespondFailed EventType = "escalation.respond_failed"

	// === Profile events ===
	EventProfileUpdated EventType = "profile.updated"

	// === System events ===
	EventSystemStartup  EventType = "system.startup"
	EventSystemShutdown EventType = "system.shutdown"
)

// Severity represents the severity level of an audit event
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Target kinds
const (
	KindOfficer    = "Officer"
	KindEscalation = "Escalation"
	KindConsole    = "Console"
)

// Event represents a single audit event
type Event struct {
	// ID is a unique identifier for this event
	ID string `json:"id"`

	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`

	// Actor is who triggered the event
	Actor Actor `json:"actor"`

	// Target is what was affected by the event
	Target Target `json:"target"`

	// Details contains event-specific information
	Details map[string]interface{} `json:"details,omitempty"`

	RequestContext *RequestContext `json:"requestContext,omitempty"`
}

// Actor represents who triggered an audit event
type Actor struct {
	// EmployeeID of the officer. Empty for failed logins with unknown ids.
	EmployeeID string `json:"employeeId"`
	District   string `json:"district,omitempty"`
	SourceIP   string `json:"sourceIP,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
}

// Target represents what was affected by an audit event
type Target struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// RequestContext contains correlation information
type RequestContext struct {
	CorrelationID string `json:"correlationId,omitempty"`
	// SessionRef is a shortened session id, never the full cookie value.
	SessionRef string `json:"sessionRef,omitempty"`
	Path       string `json:"path,omitempty"`
}

// SeverityForEventType returns the default severity for an event type
func SeverityForEventType(eventType EventType) Severity {
	switch eventType {
	case EventEscalationRespondFailed:
		return SeverityCritical
	case EventOfficerLoginFailed, EventSessionExpired:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
