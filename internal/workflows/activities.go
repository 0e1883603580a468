package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/usecases"
)

// ActivityExpireIfPending is the registered name of CheckInActivities.ExpireIfPending.
const ActivityExpireIfPending = "ExpireIfPending"

// CheckInActivities holds the activity implementations for the check-in window workflow.
type CheckInActivities struct {
	Expire *usecases.ExpireCheckIn
}

// ExpireIfPending publishes the expired event when the check-in is still
// pending after its window. A deleted check-in is not retried.
func (a *CheckInActivities) ExpireIfPending(ctx context.Context, checkInID string) (bool, error) {
	expired, err := a.Expire.Execute(ctx, usecases.ExpireCheckInInput{CheckInID: checkInID})
	if errors.Is(err, domain.ErrResourceNotFound) {
		return false, temporal.NewNonRetryableApplicationError(err.Error(), "CheckInNotFound", err)
	}
	return expired, err
}
