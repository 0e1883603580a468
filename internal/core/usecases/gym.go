package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/ports"
	"github.com/samirrijal/gympass/internal/pkg/metrics"
)

const (
	// gymCacheVersionKey holds the cache generation; CreateGym replaces it so
	// cached search and nearby results stop being read.
	gymCacheVersionKey = "gyms:version"
	gymCacheTTLSeconds = 60
)

// CreateGymInput describes a new gym.
type CreateGymInput struct {
	Title       string
	Description *string
	Phone       *string
	Latitude    float64
	Longitude   float64
}

// CreateGym registers a gym.
type CreateGym struct {
	gyms  ports.GymRepository
	cache ports.CacheService
	clock ports.Clock
}

// NewCreateGym creates a CreateGym. cache may be nil.
func NewCreateGym(gyms ports.GymRepository, cache ports.CacheService, clk ports.Clock) *CreateGym {
	return &CreateGym{gyms: gyms, cache: cache, clock: clk}
}

func (uc *CreateGym) Execute(ctx context.Context, in CreateGymInput) (*domain.Gym, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.ErrEmptyTitle
	}
	if !(domain.GeoPoint{Lat: in.Latitude, Lon: in.Longitude}).Valid() {
		return nil, domain.ErrInvalidCoordinates
	}

	gym, err := uc.gyms.Create(ctx, &domain.Gym{
		Title:       title,
		Description: in.Description,
		Phone:       in.Phone,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
	})
	if err != nil {
		return nil, fmt.Errorf("create gym: %w", err)
	}

	if uc.cache != nil {
		version := strconv.FormatInt(uc.clock.Now().UnixNano(), 10)
		if err := uc.cache.Set(ctx, gymCacheVersionKey, []byte(version), 0); err != nil {
			// cached search and nearby pages stay stale until their TTL expires
			slog.WarnContext(ctx, "bump gym cache version", "gym_id", gym.ID, "error", err)
		}
	}

	return gym, nil
}

// SearchGymsInput is a title query and a 1-indexed page.
type SearchGymsInput struct {
	Query string
	Page  int
}

// SearchGyms finds gyms whose title contains the query.
type SearchGyms struct {
	gyms  ports.GymRepository
	cache ports.CacheService
}

// NewSearchGyms creates a SearchGyms. cache may be nil.
func NewSearchGyms(gyms ports.GymRepository, cache ports.CacheService) *SearchGyms {
	return &SearchGyms{gyms: gyms, cache: cache}
}

func (uc *SearchGyms) Execute(ctx context.Context, in SearchGymsInput) ([]domain.Gym, error) {
	page := domain.NormalizePage(in.Page)
	key := fmt.Sprintf("gyms:search:%s:%s:%d", cacheVersion(ctx, uc.cache), strings.ToLower(in.Query), page)

	return readThrough(ctx, uc.cache, "gym_search", key, func() ([]domain.Gym, error) {
		gyms, err := uc.gyms.SearchByTitle(ctx, in.Query, page)
		if err != nil {
			return nil, fmt.Errorf("search gyms: %w", err)
		}
		return gyms, nil
	})
}

// FetchNearbyGymsInput is the member's position.
type FetchNearbyGymsInput struct {
	UserLatitude  float64
	UserLongitude float64
}

// FetchNearbyGyms lists gyms within domain.NearbyRadiusMeters, closest first.
type FetchNearbyGyms struct {
	gyms  ports.GymRepository
	cache ports.CacheService
}

// NewFetchNearbyGyms creates a FetchNearbyGyms. cache may be nil.
func NewFetchNearbyGyms(gyms ports.GymRepository, cache ports.CacheService) *FetchNearbyGyms {
	return &FetchNearbyGyms{gyms: gyms, cache: cache}
}

func (uc *FetchNearbyGyms) Execute(ctx context.Context, in FetchNearbyGymsInput) ([]domain.Gym, error) {
	origin := domain.GeoPoint{Lat: in.UserLatitude, Lon: in.UserLongitude}
	if !origin.Valid() {
		return nil, domain.ErrInvalidCoordinates
	}

	key := nearbyCacheKey(cacheVersion(ctx, uc.cache), origin)
	return readThrough(ctx, uc.cache, "gym_nearby", key, func() ([]domain.Gym, error) {
		gyms, err := uc.gyms.FindNearby(ctx, origin)
		if err != nil {
			return nil, fmt.Errorf("find nearby gyms: %w", err)
		}
		return gyms, nil
	})
}

// nearbyCacheKey keys on the exact coordinates; results carry per-origin
// distances, so nearby origins must not share an entry.
func nearbyCacheKey(version string, origin domain.GeoPoint) string {
	return "gyms:nearby:" + version + ":" +
		strconv.FormatFloat(origin.Lat, 'g', -1, 64) + ":" +
		strconv.FormatFloat(origin.Lon, 'g', -1, 64)
}

func cacheVersion(ctx context.Context, cache ports.CacheService) string {
	if cache == nil {
		return "0"
	}
	data, err := cache.Get(ctx, gymCacheVersionKey)
	if err != nil || len(data) == 0 {
		return "0"
	}
	return string(data)
}

// readThrough serves key from cache, falling back to load and storing its
// result. Cache failures never fail the request.
func readThrough[T any](ctx context.Context, cache ports.CacheService, op, key string, load func() (T, error)) (T, error) {
	if cache != nil {
		if data, err := cache.Get(ctx, key); err == nil {
			var cached T
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.CacheHits.WithLabelValues(op).Inc()
				return cached, nil
			}
		}
		metrics.CacheMisses.WithLabelValues(op).Inc()
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if cache != nil {
		if data, err := json.Marshal(v); err == nil {
			_ = cache.Set(ctx, key, data, gymCacheTTLSeconds)
		}
	}
	return v, nil
}
