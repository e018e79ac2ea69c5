package console

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/audit"
	"github.com/digitalkrishi/officer-console/pkg/client"
	"github.com/digitalkrishi/officer-console/pkg/query"
	"github.com/digitalkrishi/officer-console/pkg/session"
	"github.com/digitalkrishi/officer-console/pkg/system"
)

// AuthState is the guard's view of a request.
type AuthState int

const (
	Unauthenticated AuthState = iota
	// Loading means the session store could not answer.
	Loading
	Authenticated
)

func (s AuthState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

const officerRequestKey = "officerRequest"

// officerRequest is the per-request binding of a session to a backend client
// and a cache namespace.
type officerRequest struct {
	session *session.Session
	client  *client.Client
	cache   *query.Scope
	actor   audit.Actor

	expireOnce sync.Once
}

func (r *officerRequest) officer() *v1.Officer {
	return &r.session.Officer
}

func officerFrom(c *gin.Context) *officerRequest {
	if v, ok := c.Get(officerRequestKey); ok {
		if req, ok2 := v.(*officerRequest); ok2 {
			return req
		}
	}
	return nil
}

// resolve looks up the session named by the request cookie.
func (con *Console) resolve(c *gin.Context) (AuthState, *session.Session) {
	id, err := c.Cookie(con.cookieName)
	if err != nil || id == "" {
		return Unauthenticated, nil
	}
	sess, err := con.sessions.Lookup(c.Request.Context(), id)
	switch {
	case err == nil:
		return Authenticated, sess
	case errors.Is(err, session.ErrNotFound):
		return Unauthenticated, nil
	default:
		con.reqLog(c).Warnw("Session store unavailable", "error", err)
		return Loading, nil
	}
}

// RequireOfficer lets requests with a live session through and binds the
// session to the request. Everything else is sent to /login.
func (con *Console) RequireOfficer() gin.HandlerFunc {
	return func(c *gin.Context) {
		state, sess := con.resolve(c)
		switch state {
		case Loading:
			con.renderLoading(c)
			c.Abort()
			return
		case Unauthenticated:
			con.clearCookie(c)
			redirect(c, "/login")
			c.Abort()
			return
		}

		con.bind(c, sess)
		if con.now().Sub(sess.LastSeen) > touchInterval {
			if err := con.sessions.Touch(c.Request.Context(), sess); err != nil {
				con.reqLog(c).Warnw("Failed to record session activity", "error", err)
			}
		}
		c.Next()
	}
}

func (con *Console) bind(c *gin.Context, sess *session.Session) *officerRequest {
	req := &officerRequest{
		session: sess,
		cache:   con.cache.Scope(sess.ID),
		actor:   audit.OfficerActor(sess.Officer, c.ClientIP(), c.Request.UserAgent()),
	}
	req.client = con.backend.ForToken(sess.Token, func() { con.expire(c, req) })

	c.Set(officerRequestKey, req)
	c.Set(system.OfficerIDKey, sess.Officer.EmployeeID)
	c.Set(system.SessionIDKey, system.SessionRef(sess.ID))
	return req
}

// expire runs when the advisory API rejects the session token.
func (con *Console) expire(c *gin.Context, req *officerRequest) {
	req.expireOnce.Do(func() {
		ctx := c.Request.Context()
		if err := con.sessions.Destroy(ctx, req.session.ID); err != nil {
			con.reqLog(c).Errorw("Failed to destroy expired session", "error", err)
		}
		con.audit.SessionExpired(ctx, req.actor, system.SessionRef(req.session.ID), c.Request.URL.Path)
		con.reqLog(c).Infow("Backend rejected session token, session destroyed")
	})
}

// toLogin ends the request after a backend 401.
func (con *Console) toLogin(c *gin.Context) {
	con.clearCookie(c)
	redirect(c, "/login")
	c.Abort()
}

func (con *Console) renderLoading(c *gin.Context) {
	if isHTMX(c) {
		toastTrigger(c, ToastError, "Session service unavailable, retrying...")
		c.Status(http.StatusServiceUnavailable)
		return
	}
	con.render.Page(c, http.StatusServiceUnavailable, "loading", con.render.newView("Loading", "", nil, nil))
}

func (con *Console) setCookie(c *gin.Context, sess *session.Session) {
	maxAge := int(sess.ExpiresAt.Sub(con.now()).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(con.cookieName, sess.ID, maxAge, "/", "", con.cookieSecure, true)
}

func (con *Console) clearCookie(c *gin.Context) {
	if _, err := c.Cookie(con.cookieName); err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(con.cookieName, "", -1, "/", "", con.cookieSecure, true)
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// redirect navigates the browser to location. htmx requests get HX-Redirect
// so the whole page changes instead of a swapped fragment.
func redirect(c *gin.Context, location string) {
	if isHTMX(c) {
		c.Header("HX-Redirect", location)
		c.Status(http.StatusOK)
		return
	}
	status := http.StatusFound
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		status = http.StatusSeeOther
	}
	c.Redirect(status, location)
}
