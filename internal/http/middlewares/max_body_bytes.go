package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps the request body at limit bytes. A declared length over
// the cap is refused up front; an undeclared one fails on read with
// *http.MaxBytesError, which RespondErr maps to 413. limit <= 0 disables it.
func MaxBodyBytes(limit int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if limit <= 0 || ctx.Request.Body == nil || ctx.Request.Body == http.NoBody {
			ctx.Next()
			return
		}

		if ctx.Request.ContentLength > limit {
			abortWithError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body is too large")
			return
		}

		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
		ctx.Next()
	}
}
