package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/ports"
)

// CheckInRepo implements ports.CheckInRepository with pgx. The day column is
// the calendar date of created_at in loc and carries the one-per-day unique
// constraint.
type CheckInRepo struct {
	db    *DB
	clock ports.Clock
	loc   *time.Location
}

// NewCheckInRepo creates a new CheckInRepo. A nil loc means UTC.
func NewCheckInRepo(db *DB, clk ports.Clock, loc *time.Location) *CheckInRepo {
	if loc == nil {
		loc = time.UTC
	}
	return &CheckInRepo{db: db, clock: clk, loc: loc}
}

const checkInColumns = `id, user_id, gym_id, created_at, validated_at`

func scanCheckIn(row pgx.Row, c *domain.CheckIn) error {
	return row.Scan(&c.ID, &c.UserID, &c.GymID, &c.CreatedAt, &c.ValidatedAt)
}

// Create inserts a check-in stamped with the repository clock.
func (r *CheckInRepo) Create(ctx context.Context, userID, gymID string, validatedAt *time.Time) (*domain.CheckIn, error) {
	now := r.clock.Now()

	var c domain.CheckIn
	err := scanCheckIn(r.db.Pool.QueryRow(ctx, `
		INSERT INTO check_ins (id, user_id, gym_id, created_at, validated_at, day)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+checkInColumns,
		uuid.NewString(), userID, gymID, now, validatedAt, domain.CalendarDay(now, r.loc)), &c)
	if err != nil {
		if isUniqueViolation(err, "check_ins_user_day_key") {
			return nil, domain.ErrDuplicateCheckIn
		}
		return nil, fmt.Errorf("insert check-in: %w", err)
	}
	return &c, nil
}

// FindByID returns a check-in by UUID.
func (r *CheckInRepo) FindByID(ctx context.Context, id string) (*domain.CheckIn, error) {
	if !validID(id) {
		return nil, domain.NotFound("check-in")
	}

	var c domain.CheckIn
	err := scanCheckIn(r.db.Pool.QueryRow(ctx, `SELECT `+checkInColumns+` FROM check_ins WHERE id = $1`, id), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("check-in")
	}
	if err != nil {
		return nil, fmt.Errorf("select check-in: %w", err)
	}
	return &c, nil
}

// FindByUserOnDate returns the user's check-in on the calendar day of date,
// or nil when there is none.
func (r *CheckInRepo) FindByUserOnDate(ctx context.Context, userID string, date time.Time) (*domain.CheckIn, error) {
	if !validID(userID) {
		return nil, nil
	}

	var c domain.CheckIn
	err := scanCheckIn(r.db.Pool.QueryRow(ctx, `
		SELECT `+checkInColumns+`
		FROM check_ins
		WHERE user_id = $1 AND day = $2
	`, userID, domain.CalendarDay(date, r.loc)), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select check-in by day: %w", err)
	}
	return &c, nil
}

// FindManyByUser returns one page of the user's check-ins, newest first.
func (r *CheckInRepo) FindManyByUser(ctx context.Context, userID string, page int) ([]domain.CheckIn, error) {
	checkIns := make([]domain.CheckIn, 0)
	if !validID(userID) {
		return checkIns, nil
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+checkInColumns+`
		FROM check_ins
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, domain.PageSize, domain.PageOffset(page))
	if err != nil {
		return nil, fmt.Errorf("select check-ins: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.CheckIn
		if err := scanCheckIn(rows, &c); err != nil {
			return nil, err
		}
		checkIns = append(checkIns, c)
	}
	return checkIns, rows.Err()
}

func (r *CheckInRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	if !validID(userID) {
		return 0, nil
	}

	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM check_ins WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count check-ins: %w", err)
	}
	return n, nil
}

// Save persists validated_at. A value already stored is kept.
func (r *CheckInRepo) Save(ctx context.Context, checkIn *domain.CheckIn) (*domain.CheckIn, error) {
	if !validID(checkIn.ID) {
		return nil, domain.NotFound("check-in")
	}

	var c domain.CheckIn
	err := scanCheckIn(r.db.Pool.QueryRow(ctx, `
		UPDATE check_ins
		SET validated_at = COALESCE(validated_at, $2)
		WHERE id = $1
		RETURNING `+checkInColumns,
		checkIn.ID, checkIn.ValidatedAt), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("check-in")
	}
	if err != nil {
		return nil, fmt.Errorf("update check-in: %w", err)
	}
	return &c, nil
}

// ListExpiredPending returns check-ins created at or after since that are
// still pending although their validation window had closed by now, oldest
// first.
func (r *CheckInRepo) ListExpiredPending(ctx context.Context, since, now time.Time, limit int) ([]domain.CheckIn, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+checkInColumns+`
		FROM check_ins
		WHERE validated_at IS NULL AND created_at >= $1 AND created_at < $2
		ORDER BY created_at, id
		LIMIT $3
	`, since, now.Add(-domain.ValidationWindow), limit)
	if err != nil {
		return nil, fmt.Errorf("select pending check-ins: %w", err)
	}
	defer rows.Close()

	var checkIns []domain.CheckIn
	for rows.Next() {
		var c domain.CheckIn
		if err := scanCheckIn(rows, &c); err != nil {
			return nil, err
		}
		checkIns = append(checkIns, c)
	}
	return checkIns, rows.Err()
}
