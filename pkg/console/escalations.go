package console

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/apiresponses"
	"github.com/digitalkrishi/officer-console/pkg/client"
	"github.com/digitalkrishi/officer-console/pkg/metrics"
	"github.com/digitalkrishi/officer-console/pkg/query"
	"github.com/digitalkrishi/officer-console/pkg/system"
)

type escalationsView struct {
	Filter      v1.EscalationFilter
	Escalations []v1.Escalation
	Statuses    []v1.Status
	Priorities  []v1.Priority
}

type respondView struct {
	ID          int64
	Escalation  *v1.Escalation
	Draft       string
	Error       string
	Respondable bool
	ReturnTo    string
}

// filterFromQuery reads the list filter from the URL. Missing values take the
// defaults; "all" is passed through as given.
func filterFromQuery(c *gin.Context) (v1.EscalationFilter, error) {
	f := v1.EscalationFilter{
		Status:   strings.ToLower(strings.TrimSpace(c.Query("status"))),
		Priority: strings.ToLower(strings.TrimSpace(c.Query("priority"))),
	}.Normalize()
	return f, f.Validate()
}

func (con *Console) listEscalations(c *gin.Context, req *officerRequest, f v1.EscalationFilter, opts ...query.FetchOption) ([]v1.Escalation, error) {
	return query.Get(c.Request.Context(), req.cache, query.EscalationsKey(f),
		func(ctx context.Context) ([]v1.Escalation, error) {
			return req.client.Escalations().List(ctx, f)
		}, opts...)
}

func (con *Console) getEscalation(c *gin.Context, req *officerRequest, id int64) (*v1.Escalation, error) {
	return query.Get(c.Request.Context(), req.cache, query.EscalationKey(id),
		func(ctx context.Context) (*v1.Escalation, error) {
			return req.client.Escalations().Get(ctx, id)
		})
}

func (con *Console) getEscalations(c *gin.Context) {
	req := officerFrom(c)
	f, err := filterFromQuery(c)
	if err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid filter", err.Error())
		return
	}

	v := con.render.newView("Escalations", "escalations", req.officer(), nil)
	list, err := con.listEscalations(c, req, f)
	if err != nil {
		if client.IsUnauthorized(err) {
			con.toLogin(c)
			return
		}
		con.reqLog(c).Warnw("Failed to load escalations", "status", f.Status, "priority", f.Priority, "error", err)
		v.Toasts = append(v.Toasts, Toast{Level: ToastError, Message: "Failed to load escalations"})
	}
	v.Data = escalationsView{
		Filter:      f,
		Escalations: list,
		Statuses:    v1.Statuses(),
		Priorities:  v1.Priorities(),
	}
	con.render.Page(c, http.StatusOK, "escalations", v)
}

// getEscalationRows answers filter changes and polling with the table body.
func (con *Console) getEscalationRows(c *gin.Context) {
	req := officerFrom(c)
	f, err := filterFromQuery(c)
	if err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid filter", err.Error())
		return
	}

	list, err := con.listEscalations(c, req, f, query.Fresh())
	if err != nil {
		if client.IsUnauthorized(err) {
			con.toLogin(c)
			return
		}
		con.reqLog(c).Warnw("Failed to refresh escalations", "status", f.Status, "priority", f.Priority, "error", err)
		toastTrigger(c, ToastError, "Failed to load escalations")
	}
	c.Header("HX-Replace-Url", "/escalations?"+url.Values{
		"status":   []string{f.Status},
		"priority": []string{f.Priority},
	}.Encode())
	con.render.Fragment(c, http.StatusOK, "escalation_rows", escalationsView{Filter: f, Escalations: list})
}

func (con *Console) getRespondDialog(c *gin.Context) {
	req := officerFrom(c)
	id, ok := parseID(c)
	if !ok {
		apiresponses.RespondBadRequest(c, "invalid escalation id")
		return
	}

	rv := respondView{ID: id, Respondable: true, ReturnTo: safeReturnTo(c.Query("return_to"))}
	esc, err := con.getEscalation(c, req, id)
	status := http.StatusOK
	switch {
	case err == nil:
	case client.IsUnauthorized(err):
		con.toLogin(c)
		return
	case client.StatusCode(err) == http.StatusNotFound:
		rv.Error = "This escalation no longer exists."
		rv.Respondable = false
		status = http.StatusNotFound
	default:
		con.reqLog(c).Warnw("Failed to load escalation", "escalation", id, "error", err)
		toastTrigger(c, ToastError, "Failed to load escalation details")
	}
	if esc != nil {
		rv.Escalation = esc
		rv.Respondable = esc.Status.Respondable()
	}
	con.render.Fragment(c, status, "respond_dialog", rv)
}

func (con *Console) postRespond(c *gin.Context) {
	req := officerFrom(c)
	id, ok := parseID(c)
	if !ok {
		apiresponses.RespondBadRequest(c, "invalid escalation id")
		return
	}
	ctx := c.Request.Context()
	log := con.reqLog(c).With(system.EscalationFields(id, "")...)

	var form respondForm
	_ = c.ShouldBind(&form)
	form.normalize()
	rv := respondView{ID: id, Draft: form.Response, Respondable: true, ReturnTo: form.ReturnTo}
	if v, ok := req.cache.Peek(query.EscalationKey(id)); ok {
		rv.Escalation, _ = v.(*v1.Escalation)
	}

	if err := validate.Struct(form); err != nil {
		metrics.ResponsesSubmitted.WithLabelValues("rejected").Inc()
		rv.Error = "Please enter a response before sending."
		con.render.Fragment(c, http.StatusUnprocessableEntity, "respond_dialog", rv)
		return
	}

	if rv.Escalation == nil {
		esc, err := con.getEscalation(c, req, id)
		switch {
		case err == nil:
			rv.Escalation = esc
		case client.IsUnauthorized(err):
			con.toLogin(c)
			return
		case client.StatusCode(err) == http.StatusNotFound:
			metrics.ResponsesSubmitted.WithLabelValues("rejected").Inc()
			rv.Error = "This escalation no longer exists."
			rv.Respondable = false
			con.render.Fragment(c, http.StatusNotFound, "respond_dialog", rv)
			return
		default:
			log.Debugw("Could not load escalation before responding", "error", err)
		}
	}
	if rv.Escalation != nil && !rv.Escalation.Status.Respondable() {
		metrics.ResponsesSubmitted.WithLabelValues("rejected").Inc()
		rv.Respondable = false
		rv.Error = fmt.Sprintf("This escalation is %s and can no longer be answered.", strings.ToLower(rv.Escalation.Status.Label()))
		con.render.Fragment(c, http.StatusConflict, "respond_dialog", rv)
		return
	}

	result, err := req.client.Escalations().Respond(ctx, id, form.Text)
	if err != nil {
		if client.IsUnauthorized(err) {
			con.toLogin(c)
			return
		}
		metrics.ResponsesSubmitted.WithLabelValues("failed").Inc()
		con.audit.EscalationRespondFailed(ctx, req.actor, id, err)
		log.Errorw("Failed to send response", "error", err)
		rv.Error = "Failed to send response. Your draft has been kept."
		toastTrigger(c, ToastError, "Failed to send response")
		con.render.Fragment(c, apiresponses.BackendStatus(err), "respond_dialog", rv)
		return
	}

	req.cache.Invalidate(query.KeyEscalations, query.KeyDashboard, query.EscalationKey(id))
	metrics.ResponsesSubmitted.WithLabelValues("success").Inc()
	con.audit.EscalationResponded(ctx, req.actor, id, result)
	log.Infow("Response sent", "resultStatus", result.Status)

	trigger(c, map[string]any{
		"toast":              Toast{Level: ToastSuccess, Message: "Response sent successfully!"},
		"closeDialog":        true,
		"escalationsChanged": true,
	})
	if !isHTMX(c) {
		redirect(c, form.ReturnTo)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", nil)
}
