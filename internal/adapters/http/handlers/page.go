package handlers

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-presenter/internal/ports"
)

//go:embed web/templates/*.tmpl web/static/*
var webFiles embed.FS

// PageTemplate is the name of the presenter page template.
const PageTemplate = "index.html.tmpl"

// Templates parses the embedded page templates for gin's HTML renderer.
func Templates() (*template.Template, error) {
	return template.ParseFS(webFiles, "web/templates/*.tmpl")
}

// StaticFS returns the embedded script and stylesheet.
func StaticFS() (http.FileSystem, error) {
	sub, err := fs.Sub(webFiles, "web/static")
	if err != nil {
		return nil, err
	}

	return http.FS(sub), nil
}

// PageSettings are the timings the page script needs to refresh the view
// when a timed effect ends.
type PageSettings struct {
	Title     string
	CopiedFor time.Duration
	PulseFor  time.Duration
}

// PageHandler renders the presenter page for the caller's session.
type PageHandler struct {
	settings PageSettings
}

// NewPageHandler creates a page handler.
func NewPageHandler(settings PageSettings) *PageHandler {
	if settings.Title == "" {
		settings.Title = "Daily Motivation"
	}

	return &PageHandler{settings: settings}
}

type pageData struct {
	Title       string
	SessionID   string
	View        ports.ViewState
	CopiedForMs int64
	PulseForMs  int64
}

// Index handles GET /. It expects middleware.Session ahead of it.
func (h *PageHandler) Index(c *gin.Context) {
	sess := middleware.GetSession(c)

	c.HTML(http.StatusOK, PageTemplate, pageData{
		Title:       h.settings.Title,
		SessionID:   sess.ID,
		View:        sess.View.Snapshot(),
		CopiedForMs: h.settings.CopiedFor.Milliseconds(),
		PulseForMs:  h.settings.PulseFor.Milliseconds(),
	})
}
