package ports

import (
	"context"
	"time"

	"github.com/samirrijal/gympass/internal/core/domain"
)

// GymRepository persists gyms. The in-memory and Postgres implementations
// are interchangeable.
type GymRepository interface {
	// FindByID returns a *domain.NotFoundError when the gym does not exist.
	FindByID(ctx context.Context, id string) (*domain.Gym, error)
	// Create assigns ID and CreatedAt when empty and returns the stored gym.
	Create(ctx context.Context, gym *domain.Gym) (*domain.Gym, error)
	// SearchByTitle matches title substrings case-insensitively, 20 per page.
	SearchByTitle(ctx context.Context, query string, page int) ([]domain.Gym, error)
	// FindNearby returns gyms within domain.NearbyRadiusMeters of origin,
	// closest first.
	FindNearby(ctx context.Context, origin domain.GeoPoint) ([]domain.Gym, error)
}

// CheckInRepository persists check-ins.
type CheckInRepository interface {
	// Create stamps CreatedAt with the store clock. A second check-in for the
	// same user on the same calendar day fails with domain.ErrDuplicateCheckIn.
	Create(ctx context.Context, userID, gymID string, validatedAt *time.Time) (*domain.CheckIn, error)
	FindByID(ctx context.Context, id string) (*domain.CheckIn, error)
	// FindByUserOnDate returns nil, nil when the user has no check-in that day.
	FindByUserOnDate(ctx context.Context, userID string, date time.Time) (*domain.CheckIn, error)
	// FindManyByUser returns 20 check-ins per page, newest first.
	FindManyByUser(ctx context.Context, userID string, page int) ([]domain.CheckIn, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// Save persists ValidatedAt. Unknown ids yield a *domain.NotFoundError.
	Save(ctx context.Context, checkIn *domain.CheckIn) (*domain.CheckIn, error)
}

// ExpiredCheckInLister finds check-ins whose validation window closed while
// they were still pending.
type ExpiredCheckInLister interface {
	ListExpiredPending(ctx context.Context, since, now time.Time, limit int) ([]domain.CheckIn, error)
}

// UserRepository persists users.
type UserRepository interface {
	// Create fails with domain.ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByEmail returns nil, nil when no user has that email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}
