package ports

import (
	"context"
	"time"

	"github.com/samirrijal/gympass/internal/core/domain"
)

// Clock supplies the current instant. github.com/facebookgo/clock satisfies it.
type Clock interface {
	Now() time.Time
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishCheckInCreated(ctx context.Context, checkIn *domain.CheckIn) error
	PublishCheckInValidated(ctx context.Context, checkIn *domain.CheckIn) error
	PublishCheckInExpired(ctx context.Context, checkIn *domain.CheckIn) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeCheckInsCreated(ctx context.Context, handler func(ctx context.Context, checkIn *domain.CheckIn) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
