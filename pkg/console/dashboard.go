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

// recentLimit is the number of cases in the Recent Escalations panel.
const recentLimit = 5

type dashboardView struct {
	Stats v1.DashboardStats
}

// getDashboard renders the shell with zero counters; the counters and the
// recent list load as fragments.
func (con *Console) getDashboard(c *gin.Context) {
	req := officerFrom(c)
	con.render.Page(c, http.StatusOK, "dashboard",
		con.render.newView("Dashboard", "dashboard", req.officer(), dashboardView{Stats: v1.ZeroDashboardStats()}))
}

func (con *Console) getDashboardStats(c *gin.Context) {
	req := officerFrom(c)
	stats, err := query.Get(c.Request.Context(), req.cache, query.KeyDashboard,
		func(ctx context.Context) (*v1.DashboardStats, error) {
			return req.client.Dashboard().Get(ctx)
		}, query.Fresh())
	if err != nil {
		if client.IsUnauthorized(err) {
			con.toLogin(c)
			return
		}
		con.reqLog(c).Warnw("Failed to load dashboard statistics", "error", err)
		toastTrigger(c, ToastError, "Failed to load dashboard statistics")
	}
	view := v1.ZeroDashboardStats()
	if stats != nil {
		view = *stats
	}
	con.render.Fragment(c, http.StatusOK, "dashboard_stats", view)
}

func (con *Console) getRecentEscalations(c *gin.Context) {
	req := officerFrom(c)
	list, err := con.listEscalations(c, req, v1.DefaultEscalationFilter(), query.Fresh())
	if err != nil {
		if client.IsUnauthorized(err) {
			con.toLogin(c)
			return
		}
		con.reqLog(c).Warnw("Failed to load recent escalations", "error", err)
		toastTrigger(c, ToastError, "Failed to load recent escalations")
	}
	con.render.Fragment(c, http.StatusOK, "recent_escalations", newest(list, recentLimit))
}

// newest returns up to n escalations, most recently created first.
func newest(list []v1.Escalation, n int) []v1.Escalation {
	out := make([]v1.Escalation, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
