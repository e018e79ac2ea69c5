package console

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/client"
	"github.com/digitalkrishi/officer-console/pkg/query"
)

type priorityCount struct {
	Priority v1.Priority
	Count    int
}

type statusCount struct {
	Status v1.Status
	Count  int
}

type analyticsView struct {
	Period     string
	Periods    []string
	Report     v1.Analytics
	ByPriority []priorityCount
	ByStatus   []statusCount
	MaxHours   float64
}

func analyticsPeriod(raw string) string {
	for _, p := range v1.AnalyticsPeriods() {
		if raw == p {
			return p
		}
	}
	return v1.DefaultAnalyticsPeriod
}

func (con *Console) getAnalytics(c *gin.Context) {
	req := officerFrom(c)
	period := analyticsPeriod(c.Query("period"))
	v := con.render.newView("Analytics", "analytics", req.officer(), nil)

	report, err := query.Get(c.Request.Context(), req.cache, query.AnalyticsKey(period),
		func(ctx context.Context) (*v1.Analytics, error) {
			return req.client.Analytics().Get(ctx, period)
		})
	if err != nil {
		if client.IsUnauthorized(err) {
			con.toLogin(c)
			return
		}
		con.reqLog(c).Warnw("Failed to load analytics", "period", period, "error", err)
		v.Toasts = append(v.Toasts, Toast{Level: ToastError, Message: "Failed to load analytics"})
	}
	av := analyticsView{Period: period, Periods: v1.AnalyticsPeriods(), Report: v1.Analytics{Period: period}}
	if report != nil {
		av.Report = *report
	}
	av.ByPriority = priorityCounts(av.Report.ByPriority)
	av.ByStatus = statusCounts(av.Report.ByStatus)
	for _, rt := range av.Report.ResponseTimes {
		if rt.Hours > av.MaxHours {
			av.MaxHours = rt.Hours
		}
	}
	v.Data = av
	con.render.Page(c, http.StatusOK, "analytics", v)
}

// priorityCounts orders known priorities first, then unknown ones by name.
func priorityCounts(m map[v1.Priority]int) []priorityCount {
	out := make([]priorityCount, 0, len(m))
	for _, p := range v1.Priorities() {
		if n, ok := m[p]; ok {
			out = append(out, priorityCount{Priority: p, Count: n})
		}
	}
	var extra []priorityCount
	for p, n := range m {
		if !p.Valid() {
			extra = append(extra, priorityCount{Priority: p, Count: n})
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Priority < extra[j].Priority })
	return append(out, extra...)
}

func statusCounts(m map[v1.Status]int) []statusCount {
	out := make([]statusCount, 0, len(m))
	for _, s := range v1.Statuses() {
		if n, ok := m[s]; ok {
			out = append(out, statusCount{Status: s, Count: n})
		}
	}
	var extra []statusCount
	for s, n := range m {
		if !s.Valid() {
			extra = append(extra, statusCount{Status: s, Count: n})
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Status < extra[j].Status })
	return append(out, extra...)
}
