package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vmarkevych/storefront/internal/auth"
	"github.com/vmarkevych/storefront/internal/domain/user"
)

// RequireRole must run after RequireAuth.
func RequireRole(allowed ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || role == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}
		if err := auth.Authorize(role, allowed...); err != nil {
			abortWithError(c, http.StatusForbidden, auth.ErrForbidden.Code, "Insufficient role for this resource")
			return
		}
		c.Next()
	}
}
