package console

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/digitalkrishi/officer-console/pkg/api"
	"github.com/digitalkrishi/officer-console/pkg/audit"
	"github.com/digitalkrishi/officer-console/pkg/client"
	"github.com/digitalkrishi/officer-console/pkg/config"
	"github.com/digitalkrishi/officer-console/pkg/query"
	"github.com/digitalkrishi/officer-console/pkg/ratelimit"
	"github.com/digitalkrishi/officer-console/pkg/session"
	"github.com/digitalkrishi/officer-console/pkg/system"
)

// touchInterval limits how often a session's last-seen time is persisted.
const touchInterval = time.Minute

type Options struct {
	Sessions *session.Manager
	Cache    *query.Cache
	// Backend is the unauthenticated advisory API client. Officer requests
	// use copies bound to the session token.
	Backend  *client.Client
	Audit    *audit.Manager
	Renderer *Renderer

	CookieName   string
	CookieSecure bool

	// LoginLimiter guards POST /login; nil disables it.
	LoginLimiter *ratelimit.Limiter
	// OfficerLimiter guards pages and fragments per officer; nil disables it.
	OfficerLimiter *ratelimit.Limiter
}

// Console serves the officer pages on top of the advisory API.
type Console struct {
	log            *zap.SugaredLogger
	sessions       *session.Manager
	cache          *query.Cache
	backend        *client.Client
	audit          *audit.Manager
	render         *Renderer
	cookieName     string
	cookieSecure   bool
	loginLimiter   *ratelimit.Limiter
	officerLimiter *ratelimit.Limiter
	now            func() time.Time
}

func New(opts Options, log *zap.SugaredLogger) (*Console, error) {
	if opts.Sessions == nil || opts.Cache == nil || opts.Backend == nil || opts.Renderer == nil {
		return nil, errors.New("console requires sessions, cache, backend and renderer")
	}
	if opts.CookieName == "" {
		opts.CookieName = config.DefaultCookieName
	}
	con := &Console{
		log:            log,
		sessions:       opts.Sessions,
		cache:          opts.Cache,
		backend:        opts.Backend,
		audit:          opts.Audit,
		render:         opts.Renderer,
		cookieName:     opts.CookieName,
		cookieSecure:   opts.CookieSecure,
		loginLimiter:   opts.LoginLimiter,
		officerLimiter: opts.OfficerLimiter,
		now:            time.Now,
	}
	opts.Sessions.OnDestroy(opts.Cache.DropSession)
	return con, nil
}

// Controllers returns the public and the officer-only route groups.
func (con *Console) Controllers() []api.APIController {
	return []api.APIController{
		&PublicController{con: con},
		&OfficerController{con: con},
	}
}

// NoRoute sends unknown paths to the dashboard.
func (con *Console) NoRoute(c *gin.Context) {
	redirect(c, "/")
}

// PublicController serves the login and logout routes.
type PublicController struct {
	con *Console
}

func (PublicController) BasePath() string {
	return "/"
}

func (p *PublicController) Register(rg *gin.RouterGroup) error {
	login := []gin.HandlerFunc{}
	if p.con.loginLimiter != nil {
		login = append(login, p.con.loginLimiter.Middleware(ratelimit.ClientIP, p.con.loginRateLimited))
	}
	rg.GET("/login", p.con.getLogin)
	rg.POST("/login", append(login, p.con.postLogin)...)
	rg.POST("/logout", p.con.postLogout)
	return nil
}

func (p PublicController) Handlers() []gin.HandlerFunc {
	return nil
}

// OfficerController serves every page that needs a session.
type OfficerController struct {
	con *Console
}

func (OfficerController) BasePath() string {
	return "/"
}

func (o *OfficerController) Register(rg *gin.RouterGroup) error {
	con := o.con
	rg.GET("/", con.getDashboard)
	rg.GET("/dashboard/stats", con.getDashboardStats)
	rg.GET("/dashboard/recent", con.getRecentEscalations)

	rg.GET("/escalations", con.getEscalations)
	rg.GET("/escalations/rows", con.getEscalationRows)
	rg.GET("/escalations/:id/respond", con.getRespondDialog)
	rg.POST("/escalations/:id/respond", con.postRespond)

	rg.GET("/case/:id", con.getCase)
	rg.GET("/analytics", con.getAnalytics)
	rg.GET("/settings", con.getSettings)
	rg.POST("/settings", con.postSettings)
	return nil
}

func (o OfficerController) Handlers() []gin.HandlerFunc {
	handlers := []gin.HandlerFunc{o.con.RequireOfficer()}
	if o.con.officerLimiter != nil {
		handlers = append(handlers, o.con.officerLimiter.Middleware(ratelimit.ContextString(system.OfficerIDKey), nil))
	}
	return handlers
}

func (con *Console) reqLog(c *gin.Context) *zap.SugaredLogger {
	return system.EnrichReqLoggerWithOfficer(c, system.GetReqLogger(c, con.log))
}
