// Package middleware provides HTTP middleware for the Gin framework.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quote-presenter/internal/platform/logging"
)

// ID headers, echoed on every response.
const (
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID tracks a whole interaction across services,
	// where the request ID identifies a single hop.
	HeaderCorrelationID = "X-Correlation-ID"
)

// maxInboundIDLen bounds caller-supplied IDs. Longer or non-printable
// values are replaced with a fresh UUID.
const maxInboundIDLen = 128

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyCorrelationID
)

// RequestID returns middleware that reads X-Request-ID, or generates one,
// and makes it available to handlers, the context logger and outbound
// clients.
func RequestID() gin.HandlerFunc {
	return idMiddleware(HeaderRequestID, ContextWithRequestID, logging.WithRequestID)
}

// CorrelationID is RequestID for X-Correlation-ID.
func CorrelationID() gin.HandlerFunc {
	return idMiddleware(HeaderCorrelationID, ContextWithCorrelationID, logging.WithCorrelationID)
}

func idMiddleware(header string, enrich ...func(context.Context, string) context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if !validInboundID(id) {
			id = uuid.NewString()
		}

		c.Header(header, id)

		ctx := c.Request.Context()
		for _, fn := range enrich {
			ctx = fn(ctx, id)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func validInboundID(id string) bool {
	if id == "" || len(id) > maxInboundIDLen {
		return false
	}

	for i := range len(id) {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}

	return true
}

// ContextWithRequestID stores a request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// ContextWithCorrelationID stores a correlation ID in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID, id)
}

// RequestIDFromContext returns the request ID in ctx, or "".
// Outbound clients use it to propagate the ID.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxKeyRequestID)
}

// CorrelationIDFromContext returns the correlation ID in ctx, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxKeyCorrelationID)
}

// GetRequestID returns the request ID of the current request.
func GetRequestID(c *gin.Context) string {
	return RequestIDFromContext(c.Request.Context())
}

// GetCorrelationID returns the correlation ID of the current request.
func GetCorrelationID(c *gin.Context) string {
	return CorrelationIDFromContext(c.Request.Context())
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(key).(string)

	return id
}
