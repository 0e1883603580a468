package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/gympass/internal/core/domain"
	"github.com/samirrijal/gympass/internal/core/ports"
)

// WorkflowStarter is the part of client.Client used to start workflows.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// WindowWorkflowID is the workflow id for a check-in. One workflow runs per
// check-in for the lifetime of the Temporal namespace retention.
func WindowWorkflowID(checkInID string) string {
	return "check-in-window-" + checkInID
}

// Scheduler starts one CheckInWindowWorkflow per check-in.
type Scheduler struct {
	starter   WorkflowStarter
	taskQueue string
}

func NewScheduler(starter WorkflowStarter, taskQueue string) *Scheduler {
	return &Scheduler{starter: starter, taskQueue: taskQueue}
}

// Schedule starts the window workflow for c. Starting it again for the same
// check-in is a no-op.
func (s *Scheduler) Schedule(ctx context.Context, c *domain.CheckIn) error {
	opts := client.StartWorkflowOptions{
		ID:                    WindowWorkflowID(c.ID),
		TaskQueue:             s.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	_, err := s.starter.ExecuteWorkflow(ctx, opts, CheckInWindowWorkflow, CheckInWindowInput{
		CheckInID: c.ID,
		CreatedAt: c.CreatedAt,
	})
	var already *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &already) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("start window workflow for %s: %w", c.ID, err)
	}
	return nil
}

// Sweeper schedules window workflows for check-ins whose creation event was
// never consumed, e.g. while the worker was down.
type Sweeper struct {
	lister    ports.ExpiredCheckInLister
	scheduler *Scheduler
	clock     ports.Clock
	lookback  time.Duration
	batch     int
}

// NewSweeper creates a Sweeper that looks lookback into the past on every pass.
func NewSweeper(lister ports.ExpiredCheckInLister, scheduler *Scheduler, clk ports.Clock, lookback time.Duration) *Sweeper {
	return &Sweeper{lister: lister, scheduler: scheduler, clock: clk, lookback: lookback, batch: 500}
}

// SweepOnce hands every pending check-in whose window closed within the
// lookback period to the scheduler and returns how many it handed over.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	since := now.Add(-s.lookback - domain.ValidationWindow)

	scheduled := 0
	for {
		batch, err := s.lister.ListExpiredPending(ctx, since, now, s.batch)
		if err != nil {
			return scheduled, fmt.Errorf("list expired check-ins: %w", err)
		}
		for i := range batch {
			if err := s.scheduler.Schedule(ctx, &batch[i]); err != nil {
				return scheduled, err
			}
			scheduled++
		}
		if len(batch) < s.batch {
			return scheduled, nil
		}
		// resume after the newest check-in of this batch
		since = batch[len(batch)-1].CreatedAt.Add(time.Nanosecond)
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				slog.Error("check-in sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("check-in sweep scheduled window workflows", "count", n)
			}
		}
	}
}
