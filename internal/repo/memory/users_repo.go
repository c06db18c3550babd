package memory

import (
	"context"
	"sync"

	"github.com/vmarkevych/storefront/internal/domain/user"
)

type UsersRepo struct {
	mu      sync.RWMutex
	byID    map[string]user.User
	byEmail map[string]string // email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:    make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return user.User{}, user.ErrEmailTaken
	}

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// Count is used by tests to assert the store was not written.
func (r *UsersRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
