package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
)

// UsersRepo is an in-process Credential Store. Uniqueness is enforced under
// the write lock, mirroring the unique constraint of the postgres store.
type UsersRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[string]user.User // keyed by email
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Ping(context.Context) error {
	return nil
}

func (r *UsersRepo) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	_, ok := r.items[email]
	r.mu.RUnlock()

	return ok, nil
}

func (r *UsersRepo) Create(_ context.Context, email, passwordHash string, role user.Role) (user.User, error) {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[email]; ok {
		return user.User{}, user.ErrDuplicateEmail
	}

	r.nextID++
	u := user.User{
		ID:           r.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.items[email] = u

	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	u, ok := r.items[email]
	r.mu.RUnlock()

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

// Count returns the number of stored users. Nothing in the request path
// calls it; it backs test assertions on seeding and uniqueness.
func (r *UsersRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}
