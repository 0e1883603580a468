package domain

import (
	"time"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Business rules for check-ins and gym lookup.
const (
	MaxCheckInDistanceMeters = 100.0
	NearbyRadiusMeters       = 10_000.0
	ValidationWindow         = 20 * time.Minute
	PageSize                 = 20
)

// User is a registered member or administrator.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Gym is a location members can check in at.
type Gym struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Phone       *string   `json:"phone"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Distance    *float64  `json:"distance,omitempty"` // computed field
	CreatedAt   time.Time `json:"created_at"`
}

// Location returns the gym coordinates.
func (g Gym) Location() GeoPoint {
	return GeoPoint{Lat: g.Latitude, Lon: g.Longitude}
}

// CheckIn records a member visiting a gym. It starts pending and may be
// validated once.
type CheckIn struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	GymID       string     `json:"gym_id"`
	CreatedAt   time.Time  `json:"created_at"`
	ValidatedAt *time.Time `json:"validated_at"`
}

// IsValidated reports whether the check-in has been validated.
func (c CheckIn) IsValidated() bool {
	return c.ValidatedAt != nil
}

// ValidationDeadline is the last instant at which the check-in may be validated.
func (c CheckIn) ValidationDeadline() time.Time {
	return c.CreatedAt.Add(ValidationWindow)
}

// UserMetrics summarises a member's activity.
type UserMetrics struct {
	CheckInsCount int `json:"check_ins_count"`
}

// DayBounds returns the half-open interval [start, end) of the calendar day
// containing t, evaluated in loc.
func DayBounds(t time.Time, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	start = time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// CalendarDay returns the calendar date of t in loc as a UTC midnight value,
// suitable for a SQL DATE column.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizePage clamps a 1-indexed page number; anything below 1 is page 1.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// PageOffset returns the row offset for a 1-indexed page.
func PageOffset(page int) int {
	return (NormalizePage(page) - 1) * PageSize
}
