package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'"
	// media downloads may be embedded by the shop frontend
	mediaCSP = "default-src 'none'; media-src 'self'; img-src 'self'"
	// the docs page pulls Swagger UI from unpkg and bootstraps it inline
	docsCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; connect-src 'self'; img-src 'self' data: https:; font-src 'self' https://unpkg.com data:; style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"
)

func contentSecurityPolicy(path string) string {
	switch {
	case strings.HasPrefix(path, "/docs"):
		return docsCSP
	case strings.HasPrefix(path, "/product/image/"), strings.HasPrefix(path, "/product/video/"):
		return mediaCSP
	default:
		return apiCSP
	}
}

// SecurityHeaders sets the baseline response headers. HSTS is only sent when
// secure is true, i.e. behind TLS.
func SecurityHeaders(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", contentSecurityPolicy(c.Request.URL.Path))
		if secure {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
