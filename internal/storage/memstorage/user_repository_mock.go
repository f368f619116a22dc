package memstorage

import (
	"context"
	"strings"
	"sync"

	"github.com/sentinelstack/apigateway/internal/domain/user"
	"github.com/sentinelstack/apigateway/internal/ierr"
	"golang.org/x/crypto/bcrypt"
)

// UserRepositoryMock is the in-process identity backend. User
// registration and profile management live in another service; this seed
// repo is enough for the gateway to issue tokens.
type UserRepositoryMock struct {
	mu     sync.RWMutex
	byName map[string]*user.User
	byID   map[int64]*user.User
	nextID int64
}

func NewUserRepositoryMock() *UserRepositoryMock {
	repo := &UserRepositoryMock{
		byName: make(map[string]*user.User),
		byID:   make(map[int64]*user.User),
		nextID: 1,
	}

	adminPassword := "adminpassword"
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)

	repo.Seed(&user.User{
		Username:     "admin",
		PasswordHash: string(hashedPassword),
		Role:         "admin",
	})

	return repo
}

// Seed registers a user, assigning the next id. Intended for startup and
// tests.
func (r *UserRepositoryMock) Seed(u *user.User) *user.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *u
	stored.ID = r.nextID
	r.nextID++
	r.byName[strings.ToLower(stored.Username)] = &stored
	r.byID[stored.ID] = &stored
	return &stored
}

func (r *UserRepositoryMock) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byName[strings.ToLower(username)]
	if !ok {
		return nil, ierr.ErrUserNotFound
	}

	userCopy := *u
	return &userCopy, nil
}

func (r *UserRepositoryMock) FindByID(ctx context.Context, id int64) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ierr.ErrUserNotFound
	}

	userCopy := *u
	return &userCopy, nil
}
