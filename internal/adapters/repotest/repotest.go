// Package repotest holds the behavioural contract every repository
// implementation must satisfy. Memory stores run it in unit tests and the
// Postgres stores run it under the integration build tag.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/ports"
)

// Stores is one fresh, empty set of repositories sharing a mock clock.
type Stores struct {
	Gyms     ports.GymRepository
	CheckIns ports.CheckInRepository
	Users    ports.UserRepository
	Clock    *clock.Mock
	Location *time.Location
}

// Factory returns empty stores. It is called once per subtest.
type Factory func(t *testing.T) Stores

// SetClock moves the mock clock to at.
func SetClock(m *clock.Mock, at time.Time) {
	m.Add(at.Sub(m.Now()))
}

// Run executes the whole contract against the stores built by newStores.
func Run(t *testing.T, newStores Factory) {
	t.Run("GymFindByIDMissing", func(t *testing.T) { testGymFindByIDMissing(t, newStores(t)) })
	t.Run("GymCreateAndFind", func(t *testing.T) { testGymCreateAndFind(t, newStores(t)) })
	t.Run("GymSearchByTitle", func(t *testing.T) { testGymSearchByTitle(t, newStores(t)) })
	t.Run("GymSearchEscapesWildcards", func(t *testing.T) { testGymSearchEscapesWildcards(t, newStores(t)) })
	t.Run("GymSearchPagination", func(t *testing.T) { testGymSearchPagination(t, newStores(t)) })
	t.Run("GymFindNearby", func(t *testing.T) { testGymFindNearby(t, newStores(t)) })
	t.Run("CheckInCreateAndFind", func(t *testing.T) { testCheckInCreateAndFind(t, newStores(t)) })
	t.Run("CheckInDailyUniqueness", func(t *testing.T) { testCheckInDailyUniqueness(t, newStores(t)) })
	t.Run("CheckInFindByUserOnDate", func(t *testing.T) { testCheckInFindByUserOnDate(t, newStores(t)) })
	t.Run("CheckInHistoryNewestFirst", func(t *testing.T) { testCheckInHistory(t, newStores(t)) })
	t.Run("CheckInCount", func(t *testing.T) { testCheckInCount(t, newStores(t)) })
	t.Run("CheckInSave", func(t *testing.T) { testCheckInSave(t, newStores(t)) })
	t.Run("CheckInSaveUnknown", func(t *testing.T) { testCheckInSaveUnknown(t, newStores(t)) })
	t.Run("CheckInListExpiredPending", func(t *testing.T) { testCheckInListExpiredPending(t, newStores(t)) })
	t.Run("UserCreateAndFind", func(t *testing.T) { testUserCreateAndFind(t, newStores(t)) })
	t.Run("UserDuplicateEmail", func(t *testing.T) { testUserDuplicateEmail(t, newStores(t)) })
}

var base = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func mustUser(t *testing.T, s Stores, email string) *domain.User {
	t.Helper()
	u, err := s.Users.Create(context.Background(), &domain.User{
		Name:         "John Doe",
		Email:        email,
		PasswordHash: "hash",
		Role:         domain.RoleMember,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func mustGym(t *testing.T, s Stores, title string, lat, lon float64) *domain.Gym {
	t.Helper()
	g, err := s.Gyms.Create(context.Background(), &domain.Gym{
		Title:     title,
		Latitude:  lat,
		Longitude: lon,
	})
	if err != nil {
		t.Fatalf("create gym: %v", err)
	}
	return g
}

func testGymFindByIDMissing(t *testing.T, s Stores) {
	_, err := s.Gyms.FindByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, domain.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func testGymCreateAndFind(t *testing.T, s Stores) {
	SetClock(s.Clock, base)
	created, err := s.Gyms.Create(context.Background(), &domain.Gym{
		Title:       "JavaScript Gym",
		Description: ptr("Some description"),
		Phone:       ptr("1199999999"),
		Latitude:    -27.2092052,
		Longitude:   -49.6401091,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if !created.CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want %v", created.CreatedAt, base)
	}

	got, err := s.Gyms.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Title != "JavaScript Gym" || got.Phone == nil || *got.Phone != "1199999999" {
		t.Errorf("unexpected gym %+v", got)
	}
	if got.Latitude != -27.2092052 || got.Longitude != -49.6401091 {
		t.Errorf("coordinates not preserved: %f,%f", got.Latitude, got.Longitude)
	}
}

func testGymSearchByTitle(t *testing.T, s Stores) {
	SetClock(s.Clock, base)
	mustGym(t, s, "JavaScript Gym", 0, 0)
	s.Clock.Add(time.Second)
	mustGym(t, s, "TypeScript Gym", 0, 0)
	s.Clock.Add(time.Second)
	mustGym(t, s, "Crossfit Box", 0, 0)

	got, err := s.Gyms.SearchByTitle(context.Background(), "javascript", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "JavaScript Gym" {
		t.Fatalf("expected JavaScript Gym only, got %+v", got)
	}

	got, err = s.Gyms.SearchByTitle(context.Background(), "GYM", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].Title != "JavaScript Gym" || got[1].Title != "TypeScript Gym" {
		t.Fatalf("expected both gyms in creation order, got %+v", got)
	}

	got, err = s.Gyms.SearchByTitle(context.Background(), "pilates", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func testGymSearchEscapesWildcards(t *testing.T, s Stores) {
	mustGym(t, s, "100% Fitness", 0, 0)
	mustGym(t, s, "1000 Fitness", 0, 0)
	mustGym(t, s, "Power_House", 0, 0)
	mustGym(t, s, "PowerXHouse", 0, 0)

	got, err := s.Gyms.SearchByTitle(context.Background(), "0%", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "100% Fitness" {
		t.Errorf("%% must match literally, got %+v", got)
	}

	got, err = s.Gyms.SearchByTitle(context.Background(), "r_h", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Power_House" {
		t.Errorf("_ must match literally, got %+v", got)
	}
}

func testGymSearchPagination(t *testing.T, s Stores) {
	SetClock(s.Clock, base)
	for i := 1; i <= 22; i++ {
		mustGym(t, s, fmt.Sprintf("JavaScript Gym %02d", i), 0, 0)
		s.Clock.Add(time.Second)
	}

	first, err := s.Gyms.SearchByTitle(context.Background(), "JavaScript", 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(first) != domain.PageSize {
		t.Fatalf("page 1 size = %d, want %d", len(first), domain.PageSize)
	}

	second, err := s.Gyms.SearchByTitle(context.Background(), "JavaScript", 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("page 2 size = %d, want 2", len(second))
	}
	if second[0].Title != "JavaScript Gym 21" || second[1].Title != "JavaScript Gym 22" {
		t.Errorf("unexpected page 2: %s, %s", second[0].Title, second[1].Title)
	}

	clamped, err := s.Gyms.SearchByTitle(context.Background(), "JavaScript", 0)
	if err != nil {
		t.Fatalf("page 0: %v", err)
	}
	if len(clamped) != domain.PageSize || clamped[0].ID != first[0].ID {
		t.Error("page 0 must behave as page 1")
	}

	empty, err := s.Gyms.SearchByTitle(context.Background(), "JavaScript", 3)
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("page 3 size = %d, want 0", len(empty))
	}
}

func testGymFindNearby(t *testing.T, s Stores) {
	origin := domain.GeoPoint{Lat: -27.2092052, Lon: -49.6401091}

	gyms := []*domain.Gym{
		mustGym(t, s, "Near Gym", -27.2092052, -49.6401091),
		mustGym(t, s, "Close Gym", -27.2200000, -49.6401091),
		mustGym(t, s, "Far Gym", -27.0610928, -49.5229501),
		// ~9.99 km and ~10.01 km due north
		mustGym(t, s, "Edge In", origin.Lat+0.0898, origin.Lon),
		mustGym(t, s, "Edge Out", origin.Lat+0.0901, origin.Lon),
	}

	got, err := s.Gyms.FindNearby(context.Background(), origin)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}

	var want []string
	for _, g := range gyms {
		if origin.DistanceTo(g.Location()) <= domain.NearbyRadiusMeters {
			want = append(want, g.ID)
		}
	}
	var gotIDs []string
	for _, g := range got {
		gotIDs = append(gotIDs, g.ID)
	}
	if len(gotIDs) != len(want) {
		t.Fatalf("nearby returned %d gyms, want %d", len(gotIDs), len(want))
	}
	sortedGot := append([]string(nil), gotIDs...)
	sort.Strings(sortedGot)
	sort.Strings(want)
	for i := range want {
		if sortedGot[i] != want[i] {
			t.Fatalf("nearby set mismatch: got %v, want %v", sortedGot, want)
		}
	}

	if got[0].Title != "Near Gym" {
		t.Errorf("closest gym first, got %s", got[0].Title)
	}
	for i, g := range got {
		if g.Distance == nil {
			t.Fatalf("gym %s has no distance", g.Title)
		}
		if i > 0 && *got[i-1].Distance > *g.Distance {
			t.Errorf("results not ordered by distance at %d", i)
		}
		if d := origin.DistanceTo(g.Location()); absDiff(d, *g.Distance) > 0.5 {
			t.Errorf("distance %f differs from haversine %f", *g.Distance, d)
		}
	}
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

func testCheckInCreateAndFind(t *testing.T, s Stores) {
	SetClock(s.Clock, base)
	u := mustUser(t, s, "john@example.com")
	g := mustGym(t, s, "JavaScript Gym", 0, 0)

	c, err := s.CheckIns.Create(context.Background(), u.ID, g.ID, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == "" || c.UserID != u.ID || c.GymID != g.ID {
		t.Fatalf("unexpected check-in %+v", c)
	}
	if !c.CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want %v", c.CreatedAt, base)
	}
	if c.ValidatedAt != nil {
		t.Error("new check-in must be pending")
	}

	got, err := s.CheckIns.FindByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != c.ID || !got.CreatedAt.Equal(c.CreatedAt) {
		t.Errorf("find returned %+v", got)
	}

	_, err = s.CheckIns.FindByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound, got %v", err)
	}
}

func testCheckInDailyUniqueness(t *testing.T, s Stores) {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	dayStart := time.Date(2024, 1, 15, 0, 0, 0, 0, loc)

	u := mustUser(t, s, "john@example.com")
	g1 := mustGym(t, s, "Gym 1", 0, 0)
	g2 := mustGym(t, s, "Gym 2", 0, 0)

	SetClock(s.Clock, dayStart)
	if _, err := s.CheckIns.Create(context.Background(), u.ID, g1.ID, nil); err != nil {
		t.Fatalf("first check-in: %v", err)
	}

	SetClock(s.Clock, dayStart.Add(24*time.Hour-time.Second))
	if _, err := s.CheckIns.Create(context.Background(), u.ID, g2.ID, nil); !errors.Is(err, domain.ErrDuplicateCheckIn) {
		t.Fatalf("expected ErrDuplicateCheckIn at end of day, got %v", err)
	}

	SetClock(s.Clock, dayStart.Add(24*time.Hour))
	if _, err := s.CheckIns.Create(context.Background(), u.ID, g1.ID, nil); err != nil {
		t.Fatalf("next-day check-in: %v", err)
	}

	other := mustUser(t, s, "jane@example.com")
	if _, err := s.CheckIns.Create(context.Background(), other.ID, g1.ID, nil); err != nil {
		t.Fatalf("other user same day: %v", err)
	}
}

func testCheckInFindByUserOnDate(t *testing.T, s Stores) {
	u := mustUser(t, s, "john@example.com")
	g := mustGym(t, s, "Gym", 0, 0)

	SetClock(s.Clock, base)
	c, err := s.CheckIns.Create(context.Background(), u.ID, g.ID, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.CheckIns.FindByUserOnDate(context.Background(), u.ID, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("find same day: %v", err)
	}
	if got == nil || got.ID != c.ID {
		t.Fatalf("expected check-in %s, got %+v", c.ID, got)
	}

	got, err = s.CheckIns.FindByUserOnDate(context.Background(), u.ID, base.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("find next day: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil on another day, got %+v", got)
	}
}

func testCheckInHistory(t *testing.T, s Stores) {
	u := mustUser(t, s, "john@example.com")
	g := mustGym(t, s, "Gym", 0, 0)

	SetClock(s.Clock, base)
	for i := 0; i < 22; i++ {
		if _, err := s.CheckIns.Create(context.Background(), u.ID, g.ID, nil); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		s.Clock.Add(24 * time.Hour)
	}

	first, err := s.CheckIns.FindManyByUser(context.Background(), u.ID, 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(first) != domain.PageSize {
		t.Fatalf("page 1 size = %d, want %d", len(first), domain.PageSize)
	}
	for i := 1; i < len(first); i++ {
		if first[i].CreatedAt.After(first[i-1].CreatedAt) {
			t.Fatalf("history not newest first at %d", i)
		}
	}
	if want := base.AddDate(0, 0, 21); !first[0].CreatedAt.Equal(want) {
		t.Errorf("newest = %v, want %v", first[0].CreatedAt, want)
	}

	second, err := s.CheckIns.FindManyByUser(context.Background(), u.ID, 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("page 2 size = %d, want 2", len(second))
	}
	if !second[1].CreatedAt.Equal(base) {
		t.Errorf("oldest = %v, want %v", second[1].CreatedAt, base)
	}

	none, err := s.CheckIns.FindManyByUser(context.Background(), "00000000-0000-0000-0000-000000000000", 1)
	if err != nil {
		t.Fatalf("unknown user: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected empty history, got %d", len(none))
	}
}

func testCheckInCount(t *testing.T, s Stores) {
	u := mustUser(t, s, "john@example.com")
	g := mustGym(t, s, "Gym", 0, 0)

	n, err := s.CheckIns.CountByUser(context.Background(), u.ID)
	if err != nil || n != 0 {
		t.Fatalf("count = %d, %v; want 0", n, err)
	}

	SetClock(s.Clock, base)
	for i := 0; i < 3; i++ {
		if _, err := s.CheckIns.Create(context.Background(), u.ID, g.ID, nil); err != nil {
			t.Fatalf("create: %v", err)
		}
		s.Clock.Add(24 * time.Hour)
	}

	n, err = s.CheckIns.CountByUser(context.Background(), u.ID)
	if err != nil || n != 3 {
		t.Fatalf("count = %d, %v; want 3", n, err)
	}
}

func testCheckInSave(t *testing.T, s Stores) {
	u := mustUser(t, s, "john@example.com")
	g := mustGym(t, s, "Gym", 0, 0)

	SetClock(s.Clock, base)
	c, err := s.CheckIns.Create(context.Background(), u.ID, g.ID, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	validated := base.Add(5 * time.Minute)
	c.ValidatedAt = &validated
	saved, err := s.CheckIns.Save(context.Background(), c)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ValidatedAt == nil || !saved.ValidatedAt.Equal(validated) {
		t.Fatalf("validated_at = %v, want %v", saved.ValidatedAt, validated)
	}

	got, err := s.CheckIns.FindByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ValidatedAt == nil || !got.ValidatedAt.Equal(validated) {
		t.Errorf("persisted validated_at = %v", got.ValidatedAt)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("save must not change created_at, got %v", got.CreatedAt)
	}

	later := validated.Add(time.Minute)
	got.ValidatedAt = &later
	again, err := s.CheckIns.Save(context.Background(), got)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !again.ValidatedAt.Equal(validated) {
		t.Errorf("validated_at changed to %v, want %v kept", again.ValidatedAt, validated)
	}
}

func testCheckInSaveUnknown(t *testing.T, s Stores) {
	now := base
	_, err := s.CheckIns.Save(context.Background(), &domain.CheckIn{
		ID:          "00000000-0000-0000-0000-000000000000",
		CreatedAt:   base,
		ValidatedAt: &now,
	})
	if !errors.Is(err, domain.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func testCheckInListExpiredPending(t *testing.T, s Stores) {
	lister, ok := s.CheckIns.(ports.ExpiredCheckInLister)
	if !ok {
		t.Skip("store does not list expired check-ins")
	}
	ctx := context.Background()
	a := mustUser(t, s, "a@example.com")
	b := mustUser(t, s, "b@example.com")
	g := mustGym(t, s, "Gym", 0, 0)

	SetClock(s.Clock, base)
	pending, err := s.CheckIns.Create(ctx, a.ID, g.ID, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	validated, err := s.CheckIns.Create(ctx, b.ID, g.ID, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	at := base.Add(time.Minute)
	validated.ValidatedAt = &at
	if _, err := s.CheckIns.Save(ctx, validated); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := lister.ListExpiredPending(ctx, base, base.Add(10*time.Minute), 10)
	if err != nil || len(got) != 0 {
		t.Fatalf("window still open: got %d, %v", len(got), err)
	}

	got, err = lister.ListExpiredPending(ctx, base, base.Add(21*time.Minute), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != pending.ID {
		t.Fatalf("expected only %s, got %+v", pending.ID, got)
	}

	got, err = lister.ListExpiredPending(ctx, base.Add(time.Second), base.Add(21*time.Minute), 10)
	if err != nil || len(got) != 0 {
		t.Fatalf("since must exclude older check-ins: got %d, %v", len(got), err)
	}
}

func testUserCreateAndFind(t *testing.T, s Stores) {
	SetClock(s.Clock, base)
	u := mustUser(t, s, "john@example.com")
	if u.ID == "" || !u.CreatedAt.Equal(base) {
		t.Fatalf("unexpected user %+v", u)
	}

	byID, err := s.Users.FindByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Email != "john@example.com" || byID.PasswordHash != "hash" || byID.Role != domain.RoleMember {
		t.Errorf("unexpected user %+v", byID)
	}

	byEmail, err := s.Users.FindByEmail(context.Background(), "john@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail == nil || byEmail.ID != u.ID {
		t.Fatalf("expected %s, got %+v", u.ID, byEmail)
	}

	missing, err := s.Users.FindByEmail(context.Background(), "nobody@example.com")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for unknown email, got %+v, %v", missing, err)
	}

	_, err = s.Users.FindByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound, got %v", err)
	}
}

func testUserDuplicateEmail(t *testing.T, s Stores) {
	mustUser(t, s, "john@example.com")
	_, err := s.Users.Create(context.Background(), &domain.User{
		Name:         "Other John",
		Email:        "john@example.com",
		PasswordHash: "hash",
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}
