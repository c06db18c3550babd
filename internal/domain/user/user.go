package user

import (
	"time"

	"github.com/vmarkevych/storefront/internal/apperr"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	ErrNotFound           = apperr.New(apperr.KindNotFound, "user_not_found", "user not found")
	ErrEmailTaken         = apperr.New(apperr.KindConflict, "email_taken", "email is already registered")
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthenticated, "invalid_credentials", "email or password is incorrect")
)
