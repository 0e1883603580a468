package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/gympass/internal/core/domain"
)

// expiryGrace keeps the timer from firing on the deadline itself, where a
// validation is still allowed.
const expiryGrace = time.Second

// CheckInWindowInput is the input for the check-in window workflow.
type CheckInWindowInput struct {
	CheckInID string
	CreatedAt time.Time
}

// CheckInWindowWorkflow sleeps until the validation window of a check-in has
// closed, then announces the check-in as expired if nobody validated it.
// It returns whether the check-in expired.
func CheckInWindowWorkflow(ctx workflow.Context, input CheckInWindowInput) (bool, error) {
	logger := workflow.GetLogger(ctx)

	deadline := input.CreatedAt.Add(domain.ValidationWindow + expiryGrace)
	if wait := deadline.Sub(workflow.Now(ctx)); wait > 0 {
		logger.Info("Waiting for validation window to close", "checkInID", input.CheckInID, "wait", wait)
		if err := workflow.Sleep(ctx, wait); err != nil {
			return false, err
		}
	}

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var expired bool
	if err := workflow.ExecuteActivity(ctx, ActivityExpireIfPending, input.CheckInID).Get(ctx, &expired); err != nil {
		logger.Error("Expiry check failed", "checkInID", input.CheckInID, "error", err)
		return false, err
	}

	logger.Info("Validation window closed", "checkInID", input.CheckInID, "expired", expired)
	return expired, nil
}
