package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-presenter/internal/app"
	"github.com/jsamuelsen/quote-presenter/internal/platform/logging"
)

const (
	// HeaderSessionID selects a session for clients without cookies and is
	// echoed on every session response.
	HeaderSessionID = "X-Session-ID"

	// ContextKeySession is the gin context key holding the *app.Session.
	ContextKeySession = "session"

	defaultSessionCookie = "quote_session"
)

// SessionConfig configures the session cookie.
type SessionConfig struct {
	CookieName string
	Secure     bool

	// MaxAge is the cookie lifetime, normally the session idle timeout.
	MaxAge time.Duration
}

// SessionStore is the part of app.Sessions the middleware needs.
type SessionStore interface {
	GetOrCreate(ctx context.Context, id string) (*app.Session, bool, error)
}

// Session returns middleware that binds the request to a presenter session.
// The session ID comes from the cookie, then the X-Session-ID header; an
// unknown or malformed ID starts a new session, which shows its first quote.
func Session(store SessionStore, cfg SessionConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = defaultSessionCookie
	}

	return func(c *gin.Context) {
		id := sessionIDFromRequest(c, cfg.CookieName)

		sess, created, err := store.GetOrCreate(c.Request.Context(), id)
		if err != nil {
			dto.AbortWithError(c, err)
			return
		}

		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.CookieName, sess.ID, int(cfg.MaxAge.Seconds()), "/", "", cfg.Secure, true)
		}

		c.Header(HeaderSessionID, sess.ID)
		c.Set(ContextKeySession, sess)
		c.Request = c.Request.WithContext(logging.WithSessionID(c.Request.Context(), sess.ID))

		c.Next()
	}
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *gin.Context, cfg SessionConfig) {
	name := cfg.CookieName
	if name == "" {
		name = defaultSessionCookie
	}

	c.SetCookie(name, "", -1, "/", "", cfg.Secure, true)
}

// GetSession returns the session bound by Session, or nil.
func GetSession(c *gin.Context) *app.Session {
	v, ok := c.Get(ContextKeySession)
	if !ok {
		return nil
	}

	sess, _ := v.(*app.Session)

	return sess
}

func sessionIDFromRequest(c *gin.Context, cookieName string) string {
	id, err := c.Cookie(cookieName)
	if err != nil || id == "" {
		id = c.GetHeader(HeaderSessionID)
	}

	if _, err := uuid.Parse(id); err != nil {
		return ""
	}

	return id
}
