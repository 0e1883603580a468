package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/ports"
	"github.com/samirrijal/gympass/internal/pkg/metrics"
)

// CreateCheckInInput carries the member, the gym and where the member stands.
type CreateCheckInInput struct {
	UserID        string
	GymID         string
	UserLatitude  float64
	UserLongitude float64
}

// CreateCheckIn registers a member's presence at a gym.
type CreateCheckIn struct {
	checkIns  ports.CheckInRepository
	gyms      ports.GymRepository
	clock     ports.Clock
	publisher ports.EventPublisher
}

// NewCreateCheckIn creates a CreateCheckIn. publisher may be nil.
func NewCreateCheckIn(
	checkIns ports.CheckInRepository,
	gyms ports.GymRepository,
	clk ports.Clock,
	publisher ports.EventPublisher,
) *CreateCheckIn {
	return &CreateCheckIn{checkIns: checkIns, gyms: gyms, clock: clk, publisher: publisher}
}

// Execute creates a pending check-in when the member is within
// domain.MaxCheckInDistanceMeters of the gym and has not checked in today.
// Nothing is written when it fails.
func (uc *CreateCheckIn) Execute(ctx context.Context, in CreateCheckInInput) (*domain.CheckIn, error) {
	ctx, span := tracer.Start(ctx, "CreateCheckIn")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", in.UserID), attribute.String("gym.id", in.GymID))

	gym, err := uc.gyms.FindByID(ctx, in.GymID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	member := domain.GeoPoint{Lat: in.UserLatitude, Lon: in.UserLongitude}
	distance := member.DistanceTo(gym.Location())
	metrics.CheckInDistance.Observe(distance)
	span.SetAttributes(attribute.Float64("checkin.distance_m", distance))

	// fails closed if distance is ever NaN
	if !(distance <= domain.MaxCheckInDistanceMeters) {
		metrics.CheckInsRejected.WithLabelValues("out_of_range").Inc()
		return nil, domain.ErrOutOfRange
	}

	existing, err := uc.checkIns.FindByUserOnDate(ctx, in.UserID, uc.clock.Now())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("find same-day check-in: %w", err)
	}
	if existing != nil {
		metrics.CheckInsRejected.WithLabelValues("duplicate").Inc()
		return nil, domain.ErrDuplicateCheckIn
	}

	checkIn, err := uc.checkIns.Create(ctx, in.UserID, gym.ID, nil)
	if err != nil {
		// the store re-checks daily uniqueness for concurrent requests
		if errors.Is(err, domain.ErrDuplicateCheckIn) {
			metrics.CheckInsRejected.WithLabelValues("duplicate").Inc()
			return nil, err
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create check-in: %w", err)
	}
	metrics.CheckInsCreated.Inc()

	if uc.publisher != nil {
		if err := uc.publisher.PublishCheckInCreated(ctx, checkIn); err != nil {
			slog.WarnContext(ctx, "publish check-in created", "check_in_id", checkIn.ID, "error", err)
		}
	}

	return checkIn, nil
}

// ValidateCheckInInput identifies the check-in to validate.
type ValidateCheckInInput struct {
	CheckInID string
}

// ValidateCheckIn confirms a pending check-in within its validation window.
type ValidateCheckIn struct {
	checkIns  ports.CheckInRepository
	clock     ports.Clock
	publisher ports.EventPublisher
}

// NewValidateCheckIn creates a ValidateCheckIn. publisher may be nil.
func NewValidateCheckIn(checkIns ports.CheckInRepository, clk ports.Clock, publisher ports.EventPublisher) *ValidateCheckIn {
	return &ValidateCheckIn{checkIns: checkIns, clock: clk, publisher: publisher}
}

// Execute stamps ValidatedAt with the current time. A check-in can be
// validated once, and only up to domain.ValidationWindow after creation.
func (uc *ValidateCheckIn) Execute(ctx context.Context, in ValidateCheckInInput) (*domain.CheckIn, error) {
	ctx, span := tracer.Start(ctx, "ValidateCheckIn")
	defer span.End()
	span.SetAttributes(attribute.String("check_in.id", in.CheckInID))

	checkIn, err := uc.checkIns.FindByID(ctx, in.CheckInID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if checkIn.IsValidated() {
		return nil, domain.ErrAlreadyValidated
	}

	now := uc.clock.Now()
	if now.Sub(checkIn.CreatedAt) > domain.ValidationWindow {
		return nil, domain.ErrLateValidation
	}

	checkIn.ValidatedAt = &now
	saved, err := uc.checkIns.Save(ctx, checkIn)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("save check-in: %w", err)
	}
	metrics.CheckInsValidated.Inc()

	if uc.publisher != nil {
		if err := uc.publisher.PublishCheckInValidated(ctx, saved); err != nil {
			slog.WarnContext(ctx, "publish check-in validated", "check_in_id", saved.ID, "error", err)
		}
	}

	return saved, nil
}

// FetchCheckInHistoryInput selects a page of a member's check-ins.
type FetchCheckInHistoryInput struct {
	UserID string
	Page   int
}

// FetchCheckInHistory lists a member's check-ins, newest first.
type FetchCheckInHistory struct {
	checkIns ports.CheckInRepository
}

func NewFetchCheckInHistory(checkIns ports.CheckInRepository) *FetchCheckInHistory {
	return &FetchCheckInHistory{checkIns: checkIns}
}

func (uc *FetchCheckInHistory) Execute(ctx context.Context, in FetchCheckInHistoryInput) ([]domain.CheckIn, error) {
	checkIns, err := uc.checkIns.FindManyByUser(ctx, in.UserID, domain.NormalizePage(in.Page))
	if err != nil {
		return nil, fmt.Errorf("find check-ins: %w", err)
	}
	return checkIns, nil
}

// GetUserMetricsInput identifies the member.
type GetUserMetricsInput struct {
	UserID string
}

// GetUserMetrics counts a member's check-ins.
type GetUserMetrics struct {
	checkIns ports.CheckInRepository
}

func NewGetUserMetrics(checkIns ports.CheckInRepository) *GetUserMetrics {
	return &GetUserMetrics{checkIns: checkIns}
}

func (uc *GetUserMetrics) Execute(ctx context.Context, in GetUserMetricsInput) (*domain.UserMetrics, error) {
	n, err := uc.checkIns.CountByUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("count check-ins: %w", err)
	}
	return &domain.UserMetrics{CheckInsCount: n}, nil
}

// ExpireCheckInInput identifies a check-in whose window may have closed.
type ExpireCheckInInput struct {
	CheckInID string
}

// ExpireCheckIn announces check-ins that were never validated in time. The
// check-in itself is left untouched: it stays pending and can no longer be
// validated.
type ExpireCheckIn struct {
	checkIns  ports.CheckInRepository
	clock     ports.Clock
	publisher ports.EventPublisher
}

func NewExpireCheckIn(checkIns ports.CheckInRepository, clk ports.Clock, publisher ports.EventPublisher) *ExpireCheckIn {
	return &ExpireCheckIn{checkIns: checkIns, clock: clk, publisher: publisher}
}

// Execute reports whether the check-in expired. Validated check-ins and
// check-ins still inside their window are skipped. Publish failures are
// returned so the caller can retry.
func (uc *ExpireCheckIn) Execute(ctx context.Context, in ExpireCheckInInput) (bool, error) {
	ctx, span := tracer.Start(ctx, "ExpireCheckIn")
	defer span.End()
	span.SetAttributes(attribute.String("check_in.id", in.CheckInID))

	checkIn, err := uc.checkIns.FindByID(ctx, in.CheckInID)
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	if checkIn.IsValidated() || uc.clock.Now().Sub(checkIn.CreatedAt) <= domain.ValidationWindow {
		return false, nil
	}

	if uc.publisher != nil {
		if err := uc.publisher.PublishCheckInExpired(ctx, checkIn); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return false, fmt.Errorf("publish check-in expired: %w", err)
		}
	}
	metrics.CheckInsExpired.Inc()
	return true, nil
}
