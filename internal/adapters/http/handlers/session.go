package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-presenter/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-presenter/internal/app"
	"github.com/jsamuelsen/quote-presenter/internal/domain"
	"github.com/jsamuelsen/quote-presenter/internal/ports"
)

// Background outcomes reported when the caller waits for a background.
// Pending means the request deadline passed first; the check keeps running.
const (
	BackgroundLoaded     = "loaded"
	BackgroundFallback   = "fallback"
	BackgroundSuperseded = "superseded"
	BackgroundPending    = "pending"
)

// SessionRemover ends sessions.
type SessionRemover interface {
	Remove(id string) bool
}

// SessionHandler exposes the presenter actions of the caller's session.
// Every route expects middleware.Session ahead of it.
type SessionHandler struct {
	sessions SessionRemover
	cookie   middleware.SessionConfig
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(sessions SessionRemover, cookie middleware.SessionConfig) *SessionHandler {
	return &SessionHandler{sessions: sessions, cookie: cookie}
}

// RegisterRoutes registers the session routes on rg.
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.View)
	rg.DELETE("", h.End)
	rg.POST("/next", h.Next)
	rg.GET("/background", h.Background)
	rg.POST("/like", h.Like)
	rg.POST("/copy", h.Copy)
	rg.GET("/clipboard", h.Clipboard)
}

// View handles GET /api/v1/session.
func (h *SessionHandler) View(c *gin.Context) {
	c.JSON(http.StatusOK, viewOf(middleware.GetSession(c)))
}

// Next handles POST /api/v1/session/next[?wait=true].
// Text, author and likes change immediately. With wait the response also
// carries the background outcome; a request deadline reached while waiting
// reports pending with the new quote still in the view.
func (h *SessionHandler) Next(c *gin.Context) {
	var req dto.WaitRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	sess := middleware.GetSession(c)
	ctx := c.Request.Context()
	done := sess.Presenter.NextQuote(ctx)

	var outcome string
	if req.Wait {
		var err error
		if outcome, err = backgroundOutcome(done.Wait(ctx)); err != nil {
			dto.HandleError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, dto.NextQuoteResponse{ViewResponse: viewOf(sess), Background: outcome})
}

// Background handles GET /api/v1/session/background. It waits for the
// newest quote's background and returns the view once it is applied, or
// pending when the request deadline passes first.
func (h *SessionHandler) Background(c *gin.Context) {
	sess := middleware.GetSession(c)

	outcome, err := backgroundOutcome(sess.Presenter.SettleBackground(c.Request.Context()))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NextQuoteResponse{ViewResponse: viewOf(sess), Background: outcome})
}

func backgroundOutcome(err error) (string, error) {
	switch {
	case err == nil:
		return BackgroundLoaded, nil
	case errors.Is(err, app.ErrSuperseded):
		return BackgroundSuperseded, nil
	case domain.IsImageLoad(err):
		return BackgroundFallback, nil
	case isRequestDone(err):
		return BackgroundPending, nil
	default:
		return "", err
	}
}

func isRequestDone(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// Like handles POST /api/v1/session/like.
func (h *SessionHandler) Like(c *gin.Context) {
	sess := middleware.GetSession(c)
	accepted := sess.Presenter.Like(c.Request.Context())
	_, likes, _ := sess.Presenter.Current()

	c.JSON(http.StatusOK, dto.LikeResponse{ViewResponse: viewOf(sess), Accepted: accepted, Likes: likes})
}

// Copy handles POST /api/v1/session/copy[?wait=true].
// Without wait, or when the request deadline passes while waiting, the write
// is left running and 202 returned. A failed write is
// still a 200: the failure is shown to the visitor as a notice.
func (h *SessionHandler) Copy(c *gin.Context) {
	var req dto.WaitRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	sess := middleware.GetSession(c)
	ctx := c.Request.Context()

	done := sess.Presenter.CopyCurrent(ctx)
	if done == nil {
		c.JSON(http.StatusOK, dto.CopyResponse{ViewResponse: viewOf(sess)})
		return
	}

	if !req.Wait {
		c.JSON(http.StatusAccepted, dto.CopyResponse{ViewResponse: viewOf(sess), Started: true, Pending: true})
		return
	}

	err := done.Wait(ctx)
	if isRequestDone(err) {
		c.JSON(http.StatusAccepted, dto.CopyResponse{ViewResponse: viewOf(sess), Started: true, Pending: true})
		return
	}
	if err != nil && !domain.IsClipboardWrite(err) {
		dto.HandleError(c, err)
		return
	}

	resp := dto.CopyResponse{ViewResponse: viewOf(sess), Started: true, Copied: err == nil}
	if err != nil {
		resp.Error = resp.View.Notice
	} else {
		resp.Text = copiedText(sess)
	}

	c.JSON(http.StatusOK, resp)
}

// Clipboard handles GET /api/v1/session/clipboard.
func (h *SessionHandler) Clipboard(c *gin.Context) {
	sess := middleware.GetSession(c)

	reader, ok := sess.Clipboard.(ports.ClipboardReader)
	if !ok {
		dto.HandleError(c, domain.NewNotFoundError("clipboard", ""))
		return
	}

	text, ok := reader.Last()
	if !ok {
		dto.HandleError(c, domain.NewNotFoundError("clipboard content", ""))
		return
	}

	resp := dto.ClipboardResponse{Text: text}
	if hist, ok := sess.Clipboard.(interface{ History() []string }); ok {
		resp.History = hist.History()
	}

	c.JSON(http.StatusOK, resp)
}

// End handles DELETE /api/v1/session.
func (h *SessionHandler) End(c *gin.Context) {
	h.sessions.Remove(middleware.GetSession(c).ID)
	middleware.ClearSessionCookie(c, h.cookie)

	c.Status(http.StatusNoContent)
}

func viewOf(sess *app.Session) dto.ViewResponse {
	return dto.ViewResponse{SessionID: sess.ID, View: sess.View.Snapshot()}
}

// copiedText returns what landed on the clipboard, falling back to the
// current quote for write-only clipboards.
func copiedText(sess *app.Session) string {
	if reader, ok := sess.Clipboard.(ports.ClipboardReader); ok {
		if text, ok := reader.Last(); ok {
			return text
		}
	}

	q, _, _ := sess.Presenter.Current()

	return q.ClipboardText()
}
