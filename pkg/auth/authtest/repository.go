// Package authtest provides in-memory fakes of the auth ports for tests.
package authtest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/artem13815/authflow/pkg/auth"
)

// Repository is a map-backed auth.UserRepository.
type Repository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]auth.User
	byEmail map[string]uuid.UUID

	// Err, when set, is returned by every call.
	Err error
	// CreateErr, when set, is returned by Create only.
	CreateErr error
}

func NewRepository(users ...auth.User) *Repository {
	r := &Repository{
		byID:    make(map[uuid.UUID]auth.User),
		byEmail: make(map[string]uuid.UUID),
	}
	for _, u := range users {
		r.byID[u.ID] = u
		r.byEmail[auth.NormalizeEmail(u.Email)] = u.ID
	}
	return r
}

func (r *Repository) Create(_ context.Context, user auth.User) error {
	if r.Err != nil {
		return r.Err
	}
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	email := auth.NormalizeEmail(user.Email)
	if _, ok := r.byEmail[email]; ok {
		return auth.ErrUserAlreadyExists
	}
	r.byID[user.ID] = user
	r.byEmail[email] = user.ID
	return nil
}

func (r *Repository) GetByEmail(_ context.Context, email string) (auth.User, error) {
	if r.Err != nil {
		return auth.User{}, r.Err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *Repository) GetByID(_ context.Context, id uuid.UUID) (auth.User, error) {
	if r.Err != nil {
		return auth.User{}, r.Err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

// Len reports how many users are stored.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Tokens is an auth.TokenGenerator returning a fixed prefix plus the user id.
type Tokens struct {
	Err error
}

func (t Tokens) Generate(_ context.Context, user auth.User) (string, error) {
	if t.Err != nil {
		return "", t.Err
	}
	return "token-" + user.ID.String(), nil
}
