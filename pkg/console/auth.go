package console

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digitalkrishi/officer-console/pkg/audit"
	"github.com/digitalkrishi/officer-console/pkg/client"
	"github.com/digitalkrishi/officer-console/pkg/metrics"
	"github.com/digitalkrishi/officer-console/pkg/session"
	"github.com/digitalkrishi/officer-console/pkg/system"
)

type loginView struct {
	EmployeeID string
	Error      string
}

func (con *Console) renderLogin(c *gin.Context, status int, lv loginView) {
	con.render.Page(c, status, "login", con.render.newView("Sign In", "", nil, lv))
}

func (con *Console) getLogin(c *gin.Context) {
	switch state, _ := con.resolve(c); state {
	case Authenticated:
		redirect(c, "/")
		return
	case Loading:
		con.renderLoading(c)
		return
	}
	con.renderLogin(c, http.StatusOK, loginView{})
}

func (con *Console) loginRateLimited(c *gin.Context) {
	metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
	toastTrigger(c, ToastError, "Too many login attempts")
	con.renderLogin(c, http.StatusTooManyRequests, loginView{
		EmployeeID: c.PostForm("employee_id"),
		Error:      "Too many login attempts. Please wait a moment and try again.",
	})
}

func (con *Console) postLogin(c *gin.Context) {
	log := system.GetReqLogger(c, con.log)
	ctx := c.Request.Context()

	var form loginForm
	_ = c.ShouldBind(&form)
	form.normalize()
	if err := validate.Struct(form); err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		con.renderLogin(c, http.StatusUnprocessableEntity, loginView{EmployeeID: form.EmployeeID, Error: validationMessage(err)})
		return
	}

	actor := audit.Actor{EmployeeID: form.EmployeeID, SourceIP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	resp, err := con.backend.Auth().Login(ctx, form.EmployeeID, form.Password)
	if err != nil {
		if client.IsClientError(err) {
			metrics.LoginAttempts.WithLabelValues("invalid").Inc()
			con.audit.OfficerLoginFailed(ctx, actor, "invalid_credentials", client.StatusCode(err))
			log.Infow("Login rejected", "employeeID", form.EmployeeID, "status", client.StatusCode(err))
			con.renderLogin(c, http.StatusUnauthorized, loginView{EmployeeID: form.EmployeeID, Error: "Invalid employee ID or password."})
			return
		}
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		con.audit.OfficerLoginFailed(ctx, actor, "backend_error", client.StatusCode(err))
		log.Errorw("Login request failed", "employeeID", form.EmployeeID, "error", err)
		con.renderLogin(c, http.StatusBadGateway, loginView{EmployeeID: form.EmployeeID, Error: "Login failed. Please try again later."})
		return
	}

	officer := resp.Officer
	if officer.EmployeeID == "" {
		officer.EmployeeID = form.EmployeeID
	}
	sess, err := con.sessions.Create(ctx, officer, resp.BearerToken())
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		status := http.StatusServiceUnavailable
		if errors.Is(err, session.ErrTokenExpired) {
			status = http.StatusBadGateway
		}
		log.Errorw("Failed to create session", "employeeID", officer.EmployeeID, "error", err)
		con.renderLogin(c, status, loginView{EmployeeID: form.EmployeeID, Error: "Login failed. Please try again later."})
		return
	}

	con.setCookie(c, sess)
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	ref := system.SessionRef(sess.ID)
	con.audit.OfficerLogin(ctx, audit.OfficerActor(officer, c.ClientIP(), c.Request.UserAgent()), ref)
	log.Infow("Officer logged in", "officer", officer.EmployeeID, "session", ref)
	redirect(c, "/")
}

func (con *Console) postLogout(c *gin.Context) {
	ctx := c.Request.Context()
	if id, err := c.Cookie(con.cookieName); err == nil && id != "" {
		if sess, err := con.sessions.Lookup(ctx, id); err == nil {
			con.audit.OfficerLogout(ctx, audit.OfficerActor(sess.Officer, c.ClientIP(), c.Request.UserAgent()), system.SessionRef(id))
		}
		if err := con.sessions.Destroy(ctx, id); err != nil {
			con.reqLog(c).Warnw("Failed to destroy session on logout", "error", err)
		}
	}
	con.clearCookie(c)
	redirect(c, "/login")
}
