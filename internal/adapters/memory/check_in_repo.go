package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/ports"
)

// CheckInRepo is an in-memory implementation of ports.CheckInRepository.
// Calendar days are evaluated in loc.
type CheckInRepo struct {
	mu       sync.RWMutex
	clock    ports.Clock
	loc      *time.Location
	checkIns []domain.CheckIn
}

// NewCheckInRepo creates an empty CheckInRepo. A nil loc means UTC.
func NewCheckInRepo(clk ports.Clock, loc *time.Location) *CheckInRepo {
	if loc == nil {
		loc = time.UTC
	}
	return &CheckInRepo{clock: clk, loc: loc}
}

func (r *CheckInRepo) Create(_ context.Context, userID, gymID string, validatedAt *time.Time) (*domain.CheckIn, error) {
	now := r.clock.Now()
	start, end := domain.DayBounds(now, r.loc)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findOnDayLocked(userID, start, end) != nil {
		return nil, domain.ErrDuplicateCheckIn
	}

	c := domain.CheckIn{
		ID:          uuid.NewString(),
		UserID:      userID,
		GymID:       gymID,
		CreatedAt:   now,
		ValidatedAt: copyTime(validatedAt),
	}
	r.checkIns = append(r.checkIns, c)

	out := clone(c)
	return &out, nil
}

func (r *CheckInRepo) FindByID(_ context.Context, id string) (*domain.CheckIn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.checkIns {
		if c.ID == id {
			out := clone(c)
			return &out, nil
		}
	}
	return nil, domain.NotFound("check-in")
}

func (r *CheckInRepo) FindByUserOnDate(_ context.Context, userID string, date time.Time) (*domain.CheckIn, error) {
	start, end := domain.DayBounds(date, r.loc)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if c := r.findOnDayLocked(userID, start, end); c != nil {
		out := clone(*c)
		return &out, nil
	}
	return nil, nil
}

func (r *CheckInRepo) FindManyByUser(_ context.Context, userID string, page int) ([]domain.CheckIn, error) {
	r.mu.RLock()
	mine := make([]domain.CheckIn, 0)
	for _, c := range r.checkIns {
		if c.UserID == userID {
			mine = append(mine, clone(c))
		}
	}
	r.mu.RUnlock()

	sort.Slice(mine, func(i, j int) bool {
		if !mine[i].CreatedAt.Equal(mine[j].CreatedAt) {
			return mine[i].CreatedAt.After(mine[j].CreatedAt)
		}
		return mine[i].ID > mine[j].ID
	})
	return paginate(mine, page), nil
}

func (r *CheckInRepo) CountByUser(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.checkIns {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

// Save persists ValidatedAt. A value already stored is kept.
func (r *CheckInRepo) Save(_ context.Context, checkIn *domain.CheckIn) (*domain.CheckIn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.checkIns {
		if r.checkIns[i].ID == checkIn.ID {
			if r.checkIns[i].ValidatedAt == nil {
				r.checkIns[i].ValidatedAt = copyTime(checkIn.ValidatedAt)
			}
			out := clone(r.checkIns[i])
			return &out, nil
		}
	}
	return nil, domain.NotFound("check-in")
}

func (r *CheckInRepo) findOnDayLocked(userID string, start, end time.Time) *domain.CheckIn {
	for i := range r.checkIns {
		c := &r.checkIns[i]
		if c.UserID == userID && !c.CreatedAt.Before(start) && c.CreatedAt.Before(end) {
			return c
		}
	}
	return nil
}

func clone(c domain.CheckIn) domain.CheckIn {
	c.ValidatedAt = copyTime(c.ValidatedAt)
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ListExpiredPending returns check-ins created at or after since that are
// still pending although their validation window had closed by now.
func (r *CheckInRepo) ListExpiredPending(_ context.Context, since, now time.Time, limit int) ([]domain.CheckIn, error) {
	cutoff := now.Add(-domain.ValidationWindow)

	r.mu.RLock()
	var out []domain.CheckIn
	for _, c := range r.checkIns {
		if c.ValidatedAt == nil && !c.CreatedAt.Before(since) && c.CreatedAt.Before(cutoff) {
			out = append(out, clone(c))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
