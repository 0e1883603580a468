package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/ports"
	"github.com/samirrijal/gympass/internal/pkg/geospatial"
)

// GymRepo implements ports.GymRepository with pgx.
type GymRepo struct {
	db    *DB
	clock ports.Clock
}

// NewGymRepo creates a new GymRepo.
func NewGymRepo(db *DB, clk ports.Clock) *GymRepo {
	return &GymRepo{db: db, clock: clk}
}

const gymColumns = `id, title, description, phone, latitude, longitude, created_at`

func scanGym(row pgx.Row, g *domain.Gym, extra ...any) error {
	dest := append([]any{&g.ID, &g.Title, &g.Description, &g.Phone, &g.Latitude, &g.Longitude, &g.CreatedAt}, extra...)
	return row.Scan(dest...)
}

// FindByID returns a gym by UUID.
func (r *GymRepo) FindByID(ctx context.Context, id string) (*domain.Gym, error) {
	if !validID(id) {
		return nil, domain.NotFound("gym")
	}

	var g domain.Gym
	err := scanGym(r.db.Pool.QueryRow(ctx, `SELECT `+gymColumns+` FROM gyms WHERE id = $1`, id), &g)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("gym")
	}
	if err != nil {
		return nil, fmt.Errorf("select gym: %w", err)
	}
	return &g, nil
}

// Create inserts a gym, generating its id and created_at when unset.
func (r *GymRepo) Create(ctx context.Context, gym *domain.Gym) (*domain.Gym, error) {
	g := *gym
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = r.clock.Now()
	}
	g.Distance = nil

	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO gyms (id, title, description, phone, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, g.ID, g.Title, g.Description, g.Phone, g.Latitude, g.Longitude, g.CreatedAt).Scan(&g.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "gyms_pkey") {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert gym: %w", err)
	}
	return &g, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchByTitle matches title substrings with ILIKE; wildcards in query are
// matched literally.
func (r *GymRepo) SearchByTitle(ctx context.Context, query string, page int) ([]domain.Gym, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+gymColumns+`
		FROM gyms
		WHERE title ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`, likeEscaper.Replace(query), domain.PageSize, domain.PageOffset(page))
	if err != nil {
		return nil, fmt.Errorf("search gyms: %w", err)
	}
	defer rows.Close()

	gyms := make([]domain.Gym, 0)
	for rows.Next() {
		var g domain.Gym
		if err := scanGym(rows, &g); err != nil {
			return nil, err
		}
		gyms = append(gyms, g)
	}
	return gyms, rows.Err()
}

// FindNearby prefilters on a bounding box served by the (latitude, longitude)
// index, then applies the exact haversine distance.
func (r *GymRepo) FindNearby(ctx context.Context, origin domain.GeoPoint) ([]domain.Gym, error) {
	box := domain.BoundsAround(origin, domain.NearbyRadiusMeters)

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+gymColumns+`, distance
		FROM (
			SELECT `+gymColumns+`,
			       2 * $8 * asin(LEAST(1, sqrt(
			           power(sin(radians(latitude - $1) / 2), 2) +
			           cos(radians($1)) * cos(radians(latitude)) *
			           power(sin(radians(longitude - $2) / 2), 2)
			       ))) AS distance
			FROM gyms
			WHERE latitude BETWEEN $3 AND $4
			  AND longitude BETWEEN $5 AND $6
		) candidates
		WHERE distance <= $7
		ORDER BY distance, id
	`, origin.Lat, origin.Lon, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon,
		domain.NearbyRadiusMeters, geospatial.EarthRadiusMeters)
	if err != nil {
		return nil, fmt.Errorf("find nearby gyms: %w", err)
	}
	defer rows.Close()

	gyms := make([]domain.Gym, 0)
	for rows.Next() {
		var g domain.Gym
		var dist float64
		if err := scanGym(rows, &g, &dist); err != nil {
			return nil, err
		}
		g.Distance = &dist
		gyms = append(gyms, g)
	}
	return gyms, rows.Err()
}
