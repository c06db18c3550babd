package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vmarkevych/storefront/internal/auth"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"

	AccessHeader  = "X-Access-Token"
	RefreshHeader = "X-Refresh-Token"
)

// SetSessionCookies writes both tokens as httpOnly cookies and mirrors them in
// response headers for non-browser clients.
func SetSessionCookies(c *gin.Context, pair auth.TokenPair, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)

	c.SetCookie(AccessCookie, pair.AccessToken, maxAge(pair.AccessExpiresAt), "/", "", secure, true)
	c.SetCookie(RefreshCookie, pair.RefreshToken, maxAge(pair.RefreshExpiresAt), "/", "", secure, true)

	c.Header(AccessHeader, pair.AccessToken)
	c.Header(RefreshHeader, pair.RefreshToken)
}

func ClearSessionCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)

	c.SetCookie(AccessCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshCookie, "", -1, "/", "", secure, true)
}

func maxAge(expiresAt time.Time) int {
	secs := int(time.Until(expiresAt).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}
