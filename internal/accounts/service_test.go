package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmarkevych/storefront/internal/apperr"
	"github.com/vmarkevych/storefront/internal/domain/user"
	"github.com/vmarkevych/storefront/internal/repo/memory"
)

func TestRegister(t *testing.T) {
	repo := memory.NewUsersRepo()
	svc := NewService(repo)
	ctx := context.Background()

	u, err := svc.Register(ctx, " Ann@Example.com", "Secret#123")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, user.RoleCustomer, u.Role)
	assert.NotEqual(t, "Secret#123", u.PasswordHash)
	assert.Equal(t, 1, repo.Count())
}

func TestRegister_DuplicateEmailLeavesStoreUntouched(t *testing.T) {
	repo := memory.NewUsersRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ann@example.com", "Secret#123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ANN@example.com", "Other#4567")
	require.ErrorIs(t, err, user.ErrEmailTaken)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 1, repo.Count())
}

func TestRegister_RejectsWeakInput(t *testing.T) {
	repo := memory.NewUsersRepo()
	svc := NewService(repo)

	_, err := svc.Register(context.Background(), "ann@example.com", "password")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 0, repo.Count())
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(memory.NewUsersRepo())
	ctx := context.Background()

	created, err := svc.Register(ctx, "ann@example.com", "Secret#123")
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "ANN@example.com", "Secret#123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = svc.Authenticate(ctx, "ann@example.com", "Wrong#123")
	require.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "Secret#123")
	require.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestAuthenticate_MalformedEmailIsValidation(t *testing.T) {
	svc := NewService(memory.NewUsersRepo())

	_, err := svc.Authenticate(context.Background(), "not-an-email", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, user.ErrInvalidCredentials)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestEnsureAdmin(t *testing.T) {
	repo := memory.NewUsersRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin@example.com", "admin")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin@example.com", "admin")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, repo.Count())

	u, err := svc.Authenticate(ctx, "admin@example.com", "admin")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, u.Role)
}

func TestEnsureAdmin_RejectsMalformedEmail(t *testing.T) {
	repo := memory.NewUsersRepo()
	svc := NewService(repo)

	_, err := svc.EnsureAdmin(context.Background(), "admin", "admin")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 0, repo.Count())
}

func TestEnsureAdmin_SkipsWhenUnconfigured(t *testing.T) {
	repo := memory.NewUsersRepo()
	svc := NewService(repo)

	created, err := svc.EnsureAdmin(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, repo.Count())
}
