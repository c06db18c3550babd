package middlewares

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 128
)

// RequestID propagates a caller supplied X-Request-Id or mints one.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		ctx.Set(CtxRequestID, id)
		ctx.Header(requestIDHeader, id)
		ctx.Next()
	}
}

// printable ascii only; the id is echoed into headers and logs
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// RequestLogger writes one http_request line per request: info for success,
// warn for 4xx, error for 5xx.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Set(CtxLogger, log)
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := ctx.Writer.Status()

		attrs := []slog.Attr{
			slog.String("method", ctx.Request.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			slog.Int("bytes", ctx.Writer.Size()),
			slog.String("client_ip", ctx.ClientIP()),
			slog.String("request_id", ctx.GetString(CtxRequestID)),
		}
		if userID, ok := UserIDFromContext(ctx); ok {
			attrs = append(attrs, slog.String("user_id", userID))
		}
		if len(ctx.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", ctx.Errors.String()))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		log.LogAttrs(ctx.Request.Context(), level, "http_request", attrs...)
	}
}

// LoggerFromContext returns the logger RequestLogger installed, or the
// process default.
func LoggerFromContext(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(CtxLogger); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
