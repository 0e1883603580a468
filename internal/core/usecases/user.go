package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/ports"
)

// RegisterUserInput is a sign-up request.
type RegisterUserInput struct {
	Name     string
	Email    string
	Password string
}

// RegisterUser creates a member account with a bcrypt password hash.
type RegisterUser struct {
	users      ports.UserRepository
	bcryptCost int
}

// NewRegisterUser creates a RegisterUser. A cost of 0 uses bcrypt.DefaultCost.
func NewRegisterUser(users ports.UserRepository, bcryptCost int) *RegisterUser {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &RegisterUser{users: users, bcryptCost: bcryptCost}
}

func (uc *RegisterUser) Execute(ctx context.Context, in RegisterUserInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)

	existing, err := uc.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := uc.users.Create(ctx, &domain.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleMember,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// AuthenticateInput is a login attempt.
type AuthenticateInput struct {
	Email    string
	Password string
}

// Authenticate checks a member's credentials.
type Authenticate struct {
	users ports.UserRepository
}

func NewAuthenticate(users ports.UserRepository) *Authenticate {
	return &Authenticate{users: users}
}

// Execute returns domain.ErrInvalidCredentials for an unknown email or a
// wrong password alike.
func (uc *Authenticate) Execute(ctx context.Context, in AuthenticateInput) (*domain.User, error) {
	user, err := uc.users.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// GetUserProfileInput identifies the member.
type GetUserProfileInput struct {
	UserID string
}

// GetUserProfile loads a member's profile.
type GetUserProfile struct {
	users ports.UserRepository
}

func NewGetUserProfile(users ports.UserRepository) *GetUserProfile {
	return &GetUserProfile{users: users}
}

func (uc *GetUserProfile) Execute(ctx context.Context, in GetUserProfileInput) (*domain.User, error) {
	return uc.users.FindByID(ctx, in.UserID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
