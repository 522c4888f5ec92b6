package memory

import (
	"context"
	"sync"
	"time"

	"github.com/casahub/casahub/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo is an in-memory stand-in for the postgres repo, used by handler
// and service tests. The email index mirrors the store's unique constraint.
type UsersRepo struct {
	mu      sync.RWMutex
	byID    map[string]user.User
	byEmail map[string]string // normalized email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:    make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[user.NormalizeEmail(email)]

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

func (r *UsersRepo) Create(_ context.Context, email, passwordHash, name, avatar string) (user.User, error) {
	normalized := user.NormalizeEmail(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[normalized]; taken {
		return user.User{}, user.ErrEmailTaken
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        normalized,
		PasswordHash: passwordHash,
		Name:         name,
		Avatar:       avatar,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.byID[u.ID] = u
	r.byEmail[normalized] = u.ID

	return u, nil
}

func (r *UsersRepo) Update(_ context.Context, id string, name, email, passwordHash, avatar string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if email != "" {
		normalized := user.NormalizeEmail(email)

		if existing, taken := r.byEmail[normalized]; taken && existing != id {
			return user.User{}, user.ErrEmailTaken
		}

		delete(r.byEmail, u.Email)
		u.Email = normalized
		r.byEmail[normalized] = id
	}

	if name != "" {
		u.Name = name
	}

	if passwordHash != "" {
		u.PasswordHash = passwordHash
	}

	if avatar != "" {
		u.Avatar = avatar
	}

	u.UpdatedAt = time.Now().UTC()
	r.byID[id] = u

	return u, nil
}

func (r *UsersRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]

	if !ok {
		return user.ErrNotFound
	}

	delete(r.byEmail, u.Email)
	delete(r.byID, id)

	return nil
}

// Count reports how many users exist; only tests need this.
func (r *UsersRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}
