// Package accounts registers principals, checks their credentials and
// provisions the bootstrap administrator.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vmarkevych/storefront/internal/domain/user"
	"github.com/vmarkevych/storefront/internal/security"
)

// UserStore is authoritative for principals. Lookups return user.ErrNotFound,
// Create returns user.ErrEmailTaken on a duplicate email.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

type Service struct {
	users UserStore
	now   func() time.Time
}

func NewService(users UserStore) *Service {
	return &Service{users: users, now: time.Now}
}

// Register creates a customer. The store is not touched when the email is
// already taken.
func (s *Service) Register(ctx context.Context, email, password string) (user.User, error) {
	creds := user.Credentials{Email: user.NormalizeEmail(email), Password: password}
	if err := creds.Validate(); err != nil {
		return user.User{}, err
	}

	return s.create(ctx, creds, user.RoleCustomer)
}

func (s *Service) create(ctx context.Context, creds user.Credentials, role user.Role) (user.User, error) {
	_, err := s.users.GetByEmail(ctx, creds.Email)
	switch {
	case err == nil:
		return user.User{}, user.ErrEmailTaken
	case !errors.Is(err, user.ErrNotFound):
		return user.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := security.HashPassword(creds.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	return s.users.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Email:        creds.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Authenticate answers ErrInvalidCredentials for both an unknown email and a
// wrong password. A malformed email is a validation error and never reaches
// the store.
func (s *Service) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	creds := user.LoginCredentials{Email: user.NormalizeEmail(email), Password: password}
	if err := creds.Validate(); err != nil {
		return user.User{}, err
	}

	u, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, user.ErrInvalidCredentials
		}
		return user.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		if security.IsMismatch(err) {
			return user.User{}, user.ErrInvalidCredentials
		}
		return user.User{}, fmt.Errorf("check password: %w", err)
	}

	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.users.GetByID(ctx, id)
}

// EnsureAdmin provisions the administrator from configuration. It reports
// whether an account was created; an existing account is left untouched.
// The admin password only has to be non-empty, the customer strength rules
// do not apply to operator-supplied credentials.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}
	// an admin that could never log in is a configuration error
	if err := (user.LoginCredentials{Email: email, Password: password}).Validate(); err != nil {
		return false, fmt.Errorf("admin credentials: %w", err)
	}

	_, err := s.create(ctx, user.Credentials{Email: email, Password: password}, user.RoleAdmin)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
