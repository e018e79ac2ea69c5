package query

import (
	"fmt"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
)

// Key prefixes invalidated by mutations.
const (
	KeyDashboard   = "dashboard"
	KeyEscalations = "escalations"
	KeyProfile     = "profile"
	KeyAnalytics   = "analytics"
)

// EscalationsKey identifies a list read by its exact filter.
func EscalationsKey(f v1.EscalationFilter) string {
	return fmt.Sprintf("%s:%s:%s:%d", KeyEscalations, f.Status, f.Priority, f.Limit)
}

// EscalationKey identifies a single case.
func EscalationKey(id int64) string {
	return fmt.Sprintf("escalation:%d", id)
}

// AnalyticsKey identifies a report by period.
func AnalyticsKey(period string) string {
	return KeyAnalytics + ":" + period
}
