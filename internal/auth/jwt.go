package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vmarkevych/storefront/internal/apperr"
	"github.com/vmarkevych/storefront/internal/domain/user"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrTokenInvalid   = apperr.New(apperr.KindUnauthenticated, "token_invalid", "invalid or expired access token")
	ErrSessionExpired = apperr.New(apperr.KindUnauthenticated, "session_expired", "session expired, please log in again")
	ErrForbidden      = apperr.New(apperr.KindForbidden, "forbidden", "insufficient role for this resource")
)

type Claims struct {
	UserID    string    `json:"uid"`
	Role      user.Role `json:"role"`
	TokenType string    `json:"typ"`
	// SessionStart is the login time; only refresh tokens carry it.
	SessionStart *jwt.NumericDate `json:"sst,omitempty"`
	jwt.RegisteredClaims
}

// Identity is what a verified token asserts.
type Identity struct {
	UserID string
	Role   user.Role
}

type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

type Config struct {
	Secret             string
	Issuer             string
	CustomerAccessTTL  time.Duration
	AdminAccessTTL     time.Duration
	RefreshTTL         time.Duration
	MaxSessionLifetime time.Duration
}

type Option func(*Manager)

// WithClock replaces time.Now; used by tests to move past expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager mints, verifies and rotates tokens. It keeps no per-session state.
type Manager struct {
	secret []byte
	cfg    Config
	now    func() time.Time
}

func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if cfg.CustomerAccessTTL <= 0 {
		cfg.CustomerAccessTTL = 30 * time.Minute
	}
	if cfg.AdminAccessTTL <= 0 {
		cfg.AdminAccessTTL = time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.MaxSessionLifetime <= 0 {
		cfg.MaxSessionLifetime = 30 * 24 * time.Hour
	}

	m := &Manager{
		secret: []byte(cfg.Secret),
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) accessTTL(role user.Role) time.Duration {
	if role == user.RoleAdmin {
		return m.cfg.AdminAccessTTL
	}
	return m.cfg.CustomerAccessTTL
}

// IssueTokens starts a new session for the principal.
func (m *Manager) IssueTokens(userID string, role user.Role) (TokenPair, error) {
	now := m.now().UTC()
	return m.issue(userID, role, now, now)
}

func (m *Manager) issue(userID string, role user.Role, now, sessionStart time.Time) (TokenPair, error) {
	accessExp := now.Add(m.accessTTL(role))

	access, err := m.sign(Claims{
		UserID:    userID,
		Role:      role,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	})
	if err != nil {
		return TokenPair{}, err
	}

	// the refresh token never outlives the session ceiling
	refreshExp := now.Add(m.cfg.RefreshTTL)
	ceiling := sessionStart.Add(m.cfg.MaxSessionLifetime)
	if refreshExp.After(ceiling) {
		refreshExp = ceiling
	}

	refresh, err := m.sign(Claims{
		UserID:       userID,
		Role:         role,
		TokenType:    TokenTypeRefresh,
		SessionStart: jwt.NewNumericDate(sessionStart),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	})
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *Manager) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) parse(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, errors.New("empty token")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" || !claims.Role.IsValid() {
		return nil, errors.New("incomplete token claims")
	}
	return claims, nil
}

// VerifyAccess fails with ErrTokenInvalid for anything but a live access token.
func (m *Manager) VerifyAccess(tokenStr string) (Identity, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return Identity{}, apperr.Wrap(err, ErrTokenInvalid.Kind, ErrTokenInvalid.Code, ErrTokenInvalid.Message)
	}
	if claims.TokenType != TokenTypeAccess {
		return Identity{}, ErrTokenInvalid
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// Rotate exchanges a live refresh token for a fresh pair bound to the same
// identity and session start.
func (m *Manager) Rotate(refreshToken string) (TokenPair, Identity, error) {
	claims, err := m.parse(refreshToken)
	if err != nil {
		return TokenPair{}, Identity{}, apperr.Wrap(err, ErrSessionExpired.Kind, ErrSessionExpired.Code, ErrSessionExpired.Message)
	}
	if claims.TokenType != TokenTypeRefresh || claims.SessionStart == nil {
		return TokenPair{}, Identity{}, ErrSessionExpired
	}

	now := m.now().UTC()
	sessionStart := claims.SessionStart.Time.UTC()
	if !now.Before(sessionStart.Add(m.cfg.MaxSessionLifetime)) {
		return TokenPair{}, Identity{}, ErrSessionExpired
	}

	pair, err := m.issue(claims.UserID, claims.Role, now, sessionStart)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	return pair, Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// Authorize succeeds iff role is one of allowed.
func Authorize(role user.Role, allowed ...user.Role) error {
	for _, r := range allowed {
		if r == role {
			return nil
		}
	}
	return ErrForbidden
}
