package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/ports"
)

// GymRepo is an in-memory implementation of ports.GymRepository.
type GymRepo struct {
	mu    sync.RWMutex
	clock ports.Clock
	gyms  []domain.Gym
}

// NewGymRepo creates an empty GymRepo stamping records with clk.
func NewGymRepo(clk ports.Clock) *GymRepo {
	return &GymRepo{clock: clk}
}

func (r *GymRepo) FindByID(_ context.Context, id string) (*domain.Gym, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.gyms {
		if r.gyms[i].ID == id {
			g := r.gyms[i]
			return &g, nil
		}
	}
	return nil, domain.NotFound("gym")
}

func (r *GymRepo) Create(_ context.Context, gym *domain.Gym) (*domain.Gym, error) {
	g := *gym
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = r.clock.Now()
	}
	g.Distance = nil

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.gyms {
		if r.gyms[i].ID == g.ID {
			return nil, domain.ErrAlreadyExists
		}
	}
	r.gyms = append(r.gyms, g)

	out := g
	return &out, nil
}

// SearchByTitle keeps insertion order, which matches created_at order when
// records come from the same clock.
func (r *GymRepo) SearchByTitle(_ context.Context, query string, page int) ([]domain.Gym, error) {
	q := strings.ToLower(query)

	r.mu.RLock()
	matches := make([]domain.Gym, 0)
	for _, g := range r.gyms {
		if strings.Contains(strings.ToLower(g.Title), q) {
			matches = append(matches, g)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
	return paginate(matches, page), nil
}

func (r *GymRepo) FindNearby(_ context.Context, origin domain.GeoPoint) ([]domain.Gym, error) {
	r.mu.RLock()
	nearby := make([]domain.Gym, 0)
	for _, g := range r.gyms {
		d := origin.DistanceTo(g.Location())
		if d <= domain.NearbyRadiusMeters {
			g.Distance = &d
			nearby = append(nearby, g)
		}
	}
	r.mu.RUnlock()

	sort.Slice(nearby, func(i, j int) bool {
		if *nearby[i].Distance != *nearby[j].Distance {
			return *nearby[i].Distance < *nearby[j].Distance
		}
		return nearby[i].ID < nearby[j].ID
	})
	return nearby, nil
}

// paginate returns the 1-indexed page of items.
func paginate[T any](items []T, page int) []T {
	offset := domain.PageOffset(page)
	if offset >= len(items) {
		return []T{}
	}
	end := offset + domain.PageSize
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}
