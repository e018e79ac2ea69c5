package v1

// DashboardStats is the aggregate snapshot shown on the dashboard.
type DashboardStats struct {
	PendingEscalations int    `json:"pending_escalations" yaml:"pendingEscalations"`
	ActiveCases        int    `json:"active_cases" yaml:"activeCases"`
	ResolvedToday      int    `json:"resolved_today" yaml:"resolvedToday"`
	AvgResponseTime    string `json:"avg_response_time" yaml:"avgResponseTime"`
}

// ZeroDashboardStats is shown until the first snapshot arrives.
func ZeroDashboardStats() DashboardStats {
	return DashboardStats{AvgResponseTime: "0 hours"}
}

// Analytics periods understood by the backend.
const (
	Period7Days  = "7d"
	Period30Days = "30d"
	Period90Days = "90d"
)

// DefaultAnalyticsPeriod is used when no period is selected.
const DefaultAnalyticsPeriod = Period30Days

// AnalyticsPeriods lists the selectable periods.
func AnalyticsPeriods() []string {
	return []string{Period7Days, Period30Days, Period90Days}
}

// Analytics is the aggregate report for a period.
type Analytics struct {
	Period           string             `json:"period" yaml:"period"`
	TotalEscalations int                `json:"total_escalations" yaml:"totalEscalations"`
	Resolved         int                `json:"resolved" yaml:"resolved"`
	AvgResponseTime  string             `json:"avg_response_time" yaml:"avgResponseTime"`
	ByPriority       map[Priority]int   `json:"by_priority,omitempty" yaml:"byPriority,omitempty"`
	ByStatus         map[Status]int     `json:"by_status,omitempty" yaml:"byStatus,omitempty"`
	ResponseTimes    []ResponseTimeStat `json:"response_times,omitempty" yaml:"responseTimes,omitempty"`
	TopIssues        []IssueCount       `json:"top_issues,omitempty" yaml:"topIssues,omitempty"`
}

// ResponseTimeStat is one point of the response time trend.
type ResponseTimeStat struct {
	Date  string  `json:"date" yaml:"date"`
	Hours float64 `json:"hours" yaml:"hours"`
}

// IssueCount counts escalations for a crop issue.
type IssueCount struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// ResolutionRate returns resolved/total as a percentage, 0 when empty.
func (a Analytics) ResolutionRate() float64 {
	if a.TotalEscalations == 0 {
		return 0
	}
	return float64(a.Resolved) * 100 / float64(a.TotalEscalations)
}
