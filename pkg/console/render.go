package console

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/theme"
)

//go:embed templates static
var content embed.FS

// Assets returns the embedded files. Stylesheets and scripts live under
// "static".
func Assets() fs.FS {
	return content
}

// Toast levels understood by the console script.
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastInfo    = "info"
)

type Toast struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// view is the data every full page is rendered with.
type view struct {
	Title        string
	Nav          string
	Branding     string
	HtmxURL      string
	AssetVersion string
	PollSeconds  int
	ThemeCSS     template.CSS
	Officer      *v1.Officer
	Toasts       []Toast
	Data         any
}

type Renderer struct {
	log       *zap.SugaredLogger
	palette   theme.Palette
	base      *template.Template
	pages     map[string]*template.Template
	branding  string
	htmxURL   string
	version   string
	pollEvery time.Duration
}

type RendererConfig struct {
	Branding     string
	HtmxURL      string
	AssetVersion string
	PollInterval time.Duration
	Palette      theme.Palette
}

// NewRenderer parses the layout, the partials and one template set per page.
func NewRenderer(cfg RendererConfig, log *zap.SugaredLogger) (*Renderer, error) {
	r := &Renderer{
		log:       log,
		palette:   cfg.Palette,
		pages:     map[string]*template.Template{},
		branding:  cfg.Branding,
		htmxURL:   cfg.HtmxURL,
		version:   cfg.AssetVersion,
		pollEvery: cfg.PollInterval,
	}
	if r.pollEvery <= 0 {
		r.pollEvery = 30 * time.Second
	}

	base, err := template.New("console").
		Funcs(sprig.FuncMap()).
		Funcs(r.funcs()).
		ParseFS(content, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	r.base = base

	pages, err := fs.Glob(content, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		set, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := set.ParseFS(content, p); err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", p, err)
		}
		r.pages[strings.TrimSuffix(path.Base(p), ".html")] = set
	}
	return r, nil
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"priorityColor": func(p v1.Priority) theme.Color {
			if !theme.KnownPriority(p) {
				r.log.Debugw("No color mapping for priority, using default", "priority", p)
			}
			return theme.PriorityColor(p)
		},
		"statusColor": func(s v1.Status) theme.Color {
			if !theme.KnownStatus(s) {
				r.log.Debugw("No color mapping for status, using default", "status", s)
			}
			return theme.StatusColor(s)
		},
		"colorValue": func(c theme.Color) template.CSS {
			return template.CSS(r.palette.ColorValue(c))
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Local().Format("02 Jan 2006, 15:04")
		},
		"percent": func(v float64) string {
			return fmt.Sprintf("%.0f%%", v)
		},
		"barWidth": func(v, max float64) template.CSS {
			if max <= 0 {
				return "width: 0%"
			}
			return template.CSS(fmt.Sprintf("width: %.0f%%", v*100/max))
		},
	}
}

func (r *Renderer) newView(title, nav string, officer *v1.Officer, data any) *view {
	return &view{
		Title:        title,
		Nav:          nav,
		Branding:     r.branding,
		HtmxURL:      r.htmxURL,
		AssetVersion: r.version,
		PollSeconds:  int(r.pollEvery.Seconds()),
		ThemeCSS:     template.CSS(r.palette.CSSVariables()),
		Officer:      officer,
		Data:         data,
	}
}

// Page renders a full page inside the layout.
func (r *Renderer) Page(c *gin.Context, status int, page string, v *view) {
	set, ok := r.pages[page]
	if !ok {
		r.fail(c, fmt.Errorf("unknown page %q", page))
		return
	}
	r.write(c, status, set, "layout", v)
}

// Fragment renders a named partial without the layout.
func (r *Renderer) Fragment(c *gin.Context, status int, name string, data any) {
	r.write(c, status, r.base, name, data)
}

func (r *Renderer) write(c *gin.Context, status int, set *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, name, data); err != nil {
		r.fail(c, fmt.Errorf("render %s: %w", name, err))
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (r *Renderer) fail(c *gin.Context, err error) {
	r.log.Errorw("Template rendering failed", "path", c.Request.URL.Path, "error", err)
	c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", []byte("<p>Something went wrong.</p>"))
}

// trigger sets HX-Trigger with the given events. Later calls replace
// earlier ones.
func trigger(c *gin.Context, events map[string]any) {
	raw, err := json.Marshal(events)
	if err != nil {
		return
	}
	c.Header("HX-Trigger", string(raw))
}

func toastTrigger(c *gin.Context, level, message string) {
	trigger(c, map[string]any{"toast": Toast{Level: level, Message: message}})
}
