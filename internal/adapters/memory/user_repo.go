package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/ports"
)

// UserRepo is an in-memory implementation of ports.UserRepository.
// Emails compare case-insensitively.
type UserRepo struct {
	mu    sync.RWMutex
	clock ports.Clock
	users map[string]domain.User
}

func NewUserRepo(clk ports.Clock) *UserRepo {
	return &UserRepo{clock: clk, users: make(map[string]domain.User)}
}

func (r *UserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	u := *user
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.clock.Now()
	}
	if u.Role == "" {
		u.Role = domain.RoleMember
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.ID == u.ID || strings.EqualFold(existing.Email, u.Email) {
			return nil, domain.ErrAlreadyExists
		}
	}
	r.users[u.ID] = u

	out := u
	return &out, nil
}

func (r *UserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.NotFound("user")
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}
