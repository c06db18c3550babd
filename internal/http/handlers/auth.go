package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vmarkevych/storefront/internal/apperr"
	"github.com/vmarkevych/storefront/internal/auth"
	"github.com/vmarkevych/storefront/internal/domain/user"
	"github.com/vmarkevych/storefront/internal/http/middlewares"
)

type Accounts interface {
	Register(ctx context.Context, email, password string) (user.User, error)
	Authenticate(ctx context.Context, email, password string) (user.User, error)
	Get(ctx context.Context, id string) (user.User, error)
}

type TokenIssuer interface {
	IssueTokens(userID string, role user.Role) (auth.TokenPair, error)
	Rotate(refreshToken string) (auth.TokenPair, auth.Identity, error)
}

type AuthHandler struct {
	accounts Accounts
	tokens   TokenIssuer
	secure   bool
}

func NewAuthHandler(accounts Accounts, tokens TokenIssuer, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		tokens:   tokens,
		secure:   secureCookies,
	}
}

// Credential rules are enforced by the accounts service so every caller gets
// the same codes; binding only checks presence.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Role        user.Role `json:"role"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req CredentialsRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.accounts.Register(cctx, req.Email, req.Password)
	if err != nil {
		respondCredentialsErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": u})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req CredentialsRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for the store lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.accounts.Authenticate(cctx, req.Email, req.Password)
	if err != nil {
		respondCredentialsErr(ctx, err)
		return
	}

	pair, err := h.tokens.IssueTokens(u.ID, u.Role)
	if err != nil {
		RespondInternal(ctx, "Could not start session")
		return
	}

	middlewares.SetSessionCookies(ctx, pair, h.secure)

	ctx.JSON(http.StatusOK, SessionResponse{
		AccessToken: pair.AccessToken,
		ExpiresAt:   pair.AccessExpiresAt,
		Role:        u.Role,
	})
}

// Refresh rotates explicitly. The auth middleware does the same implicitly on
// protected routes.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(middlewares.RefreshCookie)
	if err != nil || raw == "" {
		raw = strings.TrimSpace(ctx.GetHeader(middlewares.RefreshHeader))
	}

	if raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	pair, id, err := h.tokens.Rotate(raw)
	if err != nil {
		middlewares.ClearSessionCookies(ctx, h.secure)
		RespondErr(ctx, err)
		return
	}

	middlewares.SetSessionCookies(ctx, pair, h.secure)

	ctx.JSON(http.StatusOK, SessionResponse{
		AccessToken: pair.AccessToken,
		ExpiresAt:   pair.AccessExpiresAt,
		Role:        id.Role,
	})
}

// Logout only clears cookies; tokens are stateless and die on expiry.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	middlewares.ClearSessionCookies(ctx, h.secure)
	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	u, err := h.accounts.Get(ctx.Request.Context(), userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

// respondCredentialsErr answers credential rule violations with 422; the body
// itself was well formed.
func respondCredentialsErr(ctx *gin.Context, err error) {
	if typed, ok := apperr.As(err); ok && typed.Kind == apperr.KindValidation {
		RespondError(ctx, http.StatusUnprocessableEntity, typed.Code, typed.Message, nil)
		return
	}
	RespondErr(ctx, err)
}
