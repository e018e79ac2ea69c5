package v1

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the backend-assigned urgency of an escalation.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities returns every known priority, most urgent first.
func Priorities() []Priority {
	return []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ParsePriority parses a priority case-insensitively.
func ParsePriority(v string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(v)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority: %q", v)
	}
	return p, nil
}

// Label returns the human readable name of the priority.
func (p Priority) Label() string {
	switch p {
	case PriorityUrgent:
		return "Urgent"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	}
	return string(p)
}

// Status is the backend-owned lifecycle state of an escalation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Statuses returns every known status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusAssigned, StatusInProgress, StatusResolved, StatusClosed}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ParseStatus parses a status case-insensitively. "in progress" and
// "in-progress" are accepted for in_progress.
func ParseStatus(v string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(v))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	s := Status(norm)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status: %q", v)
	}
	return s, nil
}

// Respondable reports whether an officer may still send a response.
// Resolved and closed cases are final from the console's point of view.
func (s Status) Respondable() bool {
	return s != StatusResolved && s != StatusClosed
}

// Label returns the human readable name of the status.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusAssigned:
		return "Assigned"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	case StatusClosed:
		return "Closed"
	}
	return string(s)
}

// FilterAll disables a status or priority filter.
const FilterAll = "all"

// DefaultEscalationLimit is the page size requested by the case list.
const DefaultEscalationLimit = 100

// Escalation is a farmer query forwarded to an extension officer.
type Escalation struct {
	// ID is the backend identifier of the case.
	ID int64 `json:"id" yaml:"id"`
	// FarmerName is the display name of the farmer who raised the query.
	FarmerName string `json:"farmer_name" yaml:"farmerName"`
	// FarmerPhone is the contact number responses are delivered to.
	FarmerPhone string `json:"farmer_phone" yaml:"farmerPhone"`
	// QueryText is the free-text question as received by the advisory service.
	QueryText string `json:"query_text" yaml:"queryText"`
	// Priority is assigned by the backend.
	Priority Priority `json:"priority" yaml:"priority"`
	// Status is assigned by the backend and changes only server-side.
	Status Status `json:"status" yaml:"status"`
	// CreatedAt is when the escalation was raised.
	CreatedAt time.Time `json:"created_at" yaml:"createdAt"`

	// Crop names the crop the query is about, when the advisory service detected one.
	// +optional
	Crop string `json:"crop,omitempty" yaml:"crop,omitempty"`
	// District is the farmer's district.
	// +optional
	District string `json:"district,omitempty" yaml:"district,omitempty"`
	// AssignedOfficer is the employee id of the officer handling the case.
	// +optional
	AssignedOfficer string `json:"assigned_officer,omitempty" yaml:"assignedOfficer,omitempty"`
	// Response is the last response sent to the farmer.
	// +optional
	Response string `json:"response,omitempty" yaml:"response,omitempty"`
	// RespondedAt is when Response was sent.
	// +optional
	RespondedAt *time.Time `json:"responded_at,omitempty" yaml:"respondedAt,omitempty"`
}

// FarmerInitial returns the avatar letter for the farmer, "F" when unknown.
func (e Escalation) FarmerInitial() string {
	name := strings.TrimSpace(e.FarmerName)
	if name == "" {
		return "F"
	}
	r := []rune(name)
	return strings.ToUpper(string(r[0]))
}

// FarmerDisplayName returns the farmer name or "Unknown".
func (e Escalation) FarmerDisplayName() string {
	if name := strings.TrimSpace(e.FarmerName); name != "" {
		return name
	}
	return "Unknown"
}

// EscalationList is the envelope returned by the list endpoint.
type EscalationList struct {
	Escalations []Escalation `json:"escalations"`
}

// EscalationFilter selects which escalations the list endpoint returns.
type EscalationFilter struct {
	// Status is a Status value or FilterAll.
	Status string
	// Priority is a Priority value or FilterAll.
	Priority string
	// Limit caps the number of rows.
	Limit int
}

// DefaultEscalationFilter is the filter the case list opens with.
func DefaultEscalationFilter() EscalationFilter {
	return EscalationFilter{
		Status:   string(StatusPending),
		Priority: FilterAll,
		Limit:    DefaultEscalationLimit,
	}
}

// Normalize fills empty fields with defaults. Values are otherwise kept as
// given so the backend sees exactly what the officer selected.
func (f EscalationFilter) Normalize() EscalationFilter {
	def := DefaultEscalationFilter()
	if strings.TrimSpace(f.Status) == "" {
		f.Status = def.Status
	}
	if strings.TrimSpace(f.Priority) == "" {
		f.Priority = def.Priority
	}
	if f.Limit <= 0 {
		f.Limit = def.Limit
	}
	return f
}

// Validate rejects filter values outside the known enumerations.
func (f EscalationFilter) Validate() error {
	if f.Status != FilterAll && !Status(f.Status).Valid() {
		return fmt.Errorf("unknown status filter: %q", f.Status)
	}
	if f.Priority != FilterAll && !Priority(f.Priority).Valid() {
		return fmt.Errorf("unknown priority filter: %q", f.Priority)
	}
	if f.Limit < 0 {
		return fmt.Errorf("limit must not be negative: %d", f.Limit)
	}
	return nil
}

// RespondRequest is the body of the respond operation.
type RespondRequest struct {
	Response string `json:"response"`
}

// RespondResult is the backend confirmation of a sent response.
type RespondResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	EscalationID int64  `json:"escalation_id,omitempty"`
	Status       Status `json:"status,omitempty"`
}
