package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
	}, ",")
	corsAllowHeaders  = strings.Join([]string{"Authorization", "Content-Type", "If-None-Match", RefreshHeader, "X-Request-Id"}, ",")
	corsExposeHeaders = strings.Join([]string{"ETag", AccessHeader, RefreshHeader, "X-Request-Id"}, ",")
)

// CORSMiddleware allows credentialed requests from the listed origins only.
// Preflights are answered here and never reach a handler.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			allowed[origin] = true
		}
	}

	return func(ctx *gin.Context) {
		ctx.Header("Vary", "Origin")

		if origin := ctx.GetHeader("Origin"); allowed[origin] {
			h := ctx.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			h.Set("Access-Control-Max-Age", "600")
		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}
