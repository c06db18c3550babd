package middlewares

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireJSON rejects writes whose body is not JSON. Bodyless writes such as
// PUT /api/cart/:idProduct pass through.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if hasBody(c.Request) && writes(c.Request.Method) && !isJSON(c.GetHeader("Content-Type")) {
			abortWithError(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type must be application/json")
			return
		}
		c.Next()
	}
}

func writes(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func hasBody(r *http.Request) bool {
	// -1 means unknown length, e.g. chunked
	return r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}
