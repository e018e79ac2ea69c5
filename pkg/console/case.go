package console

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/client"
)

type caseView struct {
	ID         int64
	Escalation *v1.Escalation
	NotFound   bool
}

func (con *Console) getCase(c *gin.Context) {
	req := officerFrom(c)
	id, ok := parseID(c)
	v := con.render.newView("Case", "escalations", req.officer(), nil)
	if !ok {
		v.Data = caseView{NotFound: true}
		con.render.Page(c, http.StatusNotFound, "case", v)
		return
	}
	v.Title = fmt.Sprintf("Case #%d", id)

	esc, err := con.getEscalation(c, req, id)
	status := http.StatusOK
	cv := caseView{ID: id, Escalation: esc}
	switch {
	case err == nil:
	case client.IsUnauthorized(err):
		con.toLogin(c)
		return
	case client.StatusCode(err) == http.StatusNotFound:
		cv.Escalation = nil
		cv.NotFound = true
		status = http.StatusNotFound
	default:
		con.reqLog(c).Warnw("Failed to load case", "escalation", id, "error", err)
		v.Toasts = append(v.Toasts, Toast{Level: ToastError, Message: "Failed to load case details"})
		if esc == nil {
			status = http.StatusBadGateway
		}
	}
	v.Data = cv
	con.render.Page(c, status, "case", v)
}
