package user

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/vmarkevych/storefront/internal/apperr"
)

const passwordSpecials = "!@#$%^&*?"

// Credentials is the shape a registration must have before anything is hashed
// or stored. bcrypt ignores input past 72 bytes, hence the upper bound.
type Credentials struct {
	Email    string `validate:"required,max=254,email"`
	Password string `validate:"required,min=8,max=72,strongpassword"`
}

// LoginCredentials only checks the shape of a login attempt. Strength rules
// are for new passwords; the bootstrap admin's may be weak.
type LoginCredentials struct {
	Email    string `validate:"required,max=254,email"`
	Password string `validate:"required"`
}

var credentialsValidator = newCredentialsValidator()

func newCredentialsValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration happens once per process, a failure here is a programming error
	if err := v.RegisterValidation("strongpassword", validateStrongPassword); err != nil {
		panic(err)
	}
	return v
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	return IsStrongPassword(fl.Field().String())
}

// IsStrongPassword requires a lower case letter, an upper case letter, a digit
// and one of the special characters.
func IsStrongPassword(p string) bool {
	var lower, upper, digit, special bool

	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	return lower && upper && digit && special
}

// NormalizeEmail trims and lower-cases the address used as the unique key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate reports the first broken rule as a validation error.
func (c Credentials) Validate() error {
	return shapeError(credentialsValidator.Struct(c))
}

func (c LoginCredentials) Validate() error {
	return shapeError(credentialsValidator.Struct(c))
}

func shapeError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return apperr.Wrap(err, apperr.KindValidation, "invalid_credentials_shape", "invalid credentials")
	}

	fe := fieldErrors[0]
	switch {
	case fe.Field() == "Email":
		return apperr.Validation("invalid_email", "email must be a valid address of at most 254 characters")
	case fe.Tag() == "required":
		return apperr.Validation("invalid_password", "password is required")
	case fe.Tag() == "strongpassword":
		return apperr.Validation("weak_password", "password must contain upper and lower case letters, a digit and one of "+passwordSpecials)
	default:
		return apperr.Validation("invalid_password", "password must be between 8 and 72 characters")
	}
}
