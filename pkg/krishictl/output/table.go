package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
)

const (
	priorityWidth = 8
	statusWidth   = 11
	queryWidth    = 48
)

// WriteEscalationTable lists escalations. The colored priority and status
// columns come last so escape codes do not disturb alignment.
func WriteEscalationTable(w io.Writer, escs []v1.Escalation) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tFARMER\tPHONE\tCREATED\tQUERY\t%-*s STATUS\n", priorityWidth, "PRIORITY")
	for _, e := range escs {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s %s\n",
			e.ID, e.FarmerDisplayName(), dash(e.FarmerPhone), formatTime(e.CreatedAt),
			truncate(e.QueryText, queryWidth), Priority(e.Priority, priorityWidth), Status(e.Status, statusWidth))
	}
	_ = tw.Flush()
}

// WriteEscalation prints one case with its full query and last response.
func WriteEscalation(w io.Writer, e *v1.Escalation) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Case:\t#%d\n", e.ID)
	_, _ = fmt.Fprintf(tw, "Farmer:\t%s\n", e.FarmerDisplayName())
	_, _ = fmt.Fprintf(tw, "Phone:\t%s\n", dash(e.FarmerPhone))
	if e.District != "" {
		_, _ = fmt.Fprintf(tw, "District:\t%s\n", e.District)
	}
	if e.Crop != "" {
		_, _ = fmt.Fprintf(tw, "Crop:\t%s\n", e.Crop)
	}
	_, _ = fmt.Fprintf(tw, "Priority:\t%s\n", Priority(e.Priority, 0))
	_, _ = fmt.Fprintf(tw, "Status:\t%s\n", Status(e.Status, 0))
	_, _ = fmt.Fprintf(tw, "Created:\t%s\n", formatTime(e.CreatedAt))
	_ = tw.Flush()

	_, _ = fmt.Fprintf(w, "\nQuery:\n  %s\n", e.QueryText)
	if e.Response != "" {
		_, _ = fmt.Fprintf(w, "\nResponse:\n  %s\n", e.Response)
		if e.RespondedAt != nil {
			_, _ = fmt.Fprintf(w, "  (sent %s)\n", formatTime(*e.RespondedAt))
		}
	}
}

func WriteDashboard(w io.Writer, s v1.DashboardStats) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Pending escalations:\t%d\n", s.PendingEscalations)
	_, _ = fmt.Fprintf(tw, "Active cases:\t%d\n", s.ActiveCases)
	_, _ = fmt.Fprintf(tw, "Resolved today:\t%d\n", s.ResolvedToday)
	_, _ = fmt.Fprintf(tw, "Avg response time:\t%s\n", dash(s.AvgResponseTime))
	_ = tw.Flush()
}

func WriteAnalytics(w io.Writer, a v1.Analytics) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Period:\t%s\n", a.Period)
	_, _ = fmt.Fprintf(tw, "Total escalations:\t%d\n", a.TotalEscalations)
	_, _ = fmt.Fprintf(tw, "Resolved:\t%d\n", a.Resolved)
	_, _ = fmt.Fprintf(tw, "Resolution rate:\t%.0f%%\n", a.ResolutionRate())
	_, _ = fmt.Fprintf(tw, "Avg response time:\t%s\n", dash(a.AvgResponseTime))
	_ = tw.Flush()

	if len(a.ByPriority) > 0 {
		_, _ = fmt.Fprintln(w, "\nBy priority:")
		for _, p := range v1.Priorities() {
			if n, ok := a.ByPriority[p]; ok {
				_, _ = fmt.Fprintf(w, "  %s %d\n", Priority(p, priorityWidth), n)
			}
		}
	}
	if len(a.ByStatus) > 0 {
		_, _ = fmt.Fprintln(w, "\nBy status:")
		for _, s := range v1.Statuses() {
			if n, ok := a.ByStatus[s]; ok {
				_, _ = fmt.Fprintf(w, "  %s %d\n", Status(s, statusWidth), n)
			}
		}
	}
	if len(a.TopIssues) > 0 {
		_, _ = fmt.Fprintln(w, "\nTop issues:")
		for i, issue := range a.TopIssues {
			_, _ = fmt.Fprintf(w, "  %d. %s (%d)\n", i+1, issue.Name, issue.Count)
		}
	}
}

func WriteProfile(w io.Writer, o v1.Officer) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Employee ID:\t%s\n", o.EmployeeID)
	_, _ = fmt.Fprintf(tw, "Name:\t%s\n", dash(o.Name))
	_, _ = fmt.Fprintf(tw, "Email:\t%s\n", dash(o.Email))
	_, _ = fmt.Fprintf(tw, "Phone:\t%s\n", dash(o.Phone))
	_, _ = fmt.Fprintf(tw, "District:\t%s\n", dash(o.District))
	_, _ = fmt.Fprintf(tw, "Designation:\t%s\n", dash(o.Designation))
	_, _ = fmt.Fprintf(tw, "Language:\t%s\n", dash(o.Language))
	_ = tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// truncate shortens s to n runes on one line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
