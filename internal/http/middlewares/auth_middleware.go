package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vmarkevych/storefront/internal/actorctx"
	"github.com/vmarkevych/storefront/internal/auth"
	"github.com/vmarkevych/storefront/internal/domain/user"
)

// Keep this small interface so tests can fake it easily.
type SessionAuthority interface {
	VerifyAccess(token string) (auth.Identity, error)
	Rotate(refreshToken string) (auth.TokenPair, auth.Identity, error)
}

type AuthMiddleware struct {
	sessions SessionAuthority
	secure   bool
	log      *slog.Logger
}

func NewAuthMiddleware(sessions SessionAuthority, secureCookies bool, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{sessions: sessions, secure: secureCookies, log: log}
}

// RequireAuth accepts a live access token. When it is missing or dead the
// refresh token is rotated in place and the request continues with the new
// pair written back to the client.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := m.sessions.VerifyAccess(accessToken(c)); err == nil {
			setIdentity(c, id)
			c.Next()
			return
		}

		raw := refreshToken(c)
		if raw == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid access token")
			return
		}

		pair, id, err := m.sessions.Rotate(raw)
		if err != nil {
			if !errors.Is(err, auth.ErrSessionExpired) {
				m.log.ErrorContext(c.Request.Context(), "session rotation failed", "err", err)
			}
			ClearSessionCookies(c, m.secure)
			abortWithError(c, http.StatusUnauthorized, auth.ErrSessionExpired.Code, "Session expired, please log in again")
			return
		}

		SetSessionCookies(c, pair, m.secure)
		m.log.DebugContext(c.Request.Context(), "session rotated", "user_id", id.UserID)

		setIdentity(c, id)
		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		if raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer")); raw != "" {
			return raw
		}
	}

	raw, err := c.Cookie(AccessCookie)
	if err != nil {
		return ""
	}
	return raw
}

func refreshToken(c *gin.Context) string {
	if raw, err := c.Cookie(RefreshCookie); err == nil && raw != "" {
		return raw
	}
	return strings.TrimSpace(c.GetHeader(RefreshHeader))
}

func setIdentity(c *gin.Context, id auth.Identity) {
	c.Set(CtxUserID, id.UserID)
	c.Set(CtxRole, id.Role)

	c.Request = c.Request.WithContext(actorctx.With(c.Request.Context(), actorctx.Actor{
		UserID: id.UserID,
		Role:   id.Role,
	}))
}

// Optional helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func RoleFromContext(c *gin.Context) (user.Role, bool) {
	v, ok := c.Get(CtxRole)
	if !ok {
		return "", false
	}
	role, ok := v.(user.Role)
	return role, ok
}
