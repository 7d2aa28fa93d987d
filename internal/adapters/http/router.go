package http

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-presenter/internal/platform/telemetry"
)

// DefaultRequestTimeout bounds API requests when RouterConfig.Timeout is zero.
const DefaultRequestTimeout = 10 * time.Second

// auditPath runs one probe per catalog image and is exempt from the request deadline.
const auditPath = "/api/v1/images/audit"

// RouterConfig contains everything SetupRouter mounts.
type RouterConfig struct {
	// ServiceName names the server spans.
	ServiceName string

	// Timeout is the deadline applied to API requests.
	Timeout time.Duration

	Health  *handlers.HealthHandler
	Catalog *handlers.CatalogHandler
	Session *handlers.SessionHandler
	Page    *handlers.PageHandler

	// Sessions binds requests to presenter sessions.
	Sessions middleware.SessionStore
	Cookie   middleware.SessionConfig
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery
//  2. Request ID and correlation ID
//  3. OpenTelemetry tracing and request metrics
//  4. Logging (skips /-/ and /static/)
//  5. Timeout (skips the image audit)
//
// Route groups:
//   - /-/: probes, build info and metrics
//   - /api/v1: read-only catalog
//   - /api/v1/session: presenter actions, bound to a session
//   - /: the page and its static assets
func SetupRouter(engine *gin.Engine, cfg RouterConfig) error {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}

	engine.Use(middleware.Recovery(), middleware.RequestID(), middleware.CorrelationID())
	engine.Use(telemetry.Middleware(cfg.ServiceName)...)
	engine.Use(
		middleware.Logging("/static/"),
		middleware.Timeout(cfg.Timeout, auditPath),
	)

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(engine.Group("/-"))
	}

	apiV1 := engine.Group("/api/v1")
	if cfg.Catalog != nil {
		cfg.Catalog.RegisterRoutes(apiV1)
	}

	bindSession := middleware.Session(cfg.Sessions, cfg.Cookie)

	if cfg.Session != nil {
		cfg.Session.RegisterRoutes(apiV1.Group("/session", bindSession))
	}

	if cfg.Page != nil {
		if err := setupPage(engine, cfg.Page, bindSession); err != nil {
			return err
		}
	}

	return nil
}

func setupPage(engine *gin.Engine, page *handlers.PageHandler, bindSession gin.HandlerFunc) error {
	tmpl, err := handlers.Templates()
	if err != nil {
		return fmt.Errorf("parsing page templates: %w", err)
	}

	static, err := handlers.StaticFS()
	if err != nil {
		return fmt.Errorf("opening static assets: %w", err)
	}

	engine.SetHTMLTemplate(tmpl)
	engine.StaticFS("/static", static)
	engine.GET("/", bindSession, page.Index)

	return nil
}

// SetupMinimalRouter mounts only the /-/ endpoints.
func SetupMinimalRouter(engine *gin.Engine, health *handlers.HealthHandler) {
	engine.Use(middleware.Recovery(), middleware.RequestID())

	if health != nil {
		health.RegisterRoutes(engine.Group("/-"))
	}
}
