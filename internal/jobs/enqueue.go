package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-klaim/internal/billing"
)

// HospitalLister lists the hospitals reports can be warmed for.
type HospitalLister interface {
	BillingHospitals(ctx context.Context) ([]billing.HospitalOption, error)
}

// Enqueuer publishes warm-up tasks through asynq.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
}

func (e Enqueuer) queue() string {
	if e.Queue == "" {
		return DefaultQueue
	}
	return e.Queue
}

// EnqueueWarmReport schedules one report warm-up. A report already queued is not queued twice.
func (e Enqueuer) EnqueueWarmReport(ctx context.Context, p WarmReportPayload) error {
	if e.Client == nil {
		return errors.New("jobs: asynq client not configured")
	}
	task, err := NewWarmReportTask(p)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task, asynq.Queue(e.queue()))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueuePreviousMonth schedules a warm-up of last month's report for every active hospital.
// It returns the number of hospitals queued.
func (e Enqueuer) EnqueuePreviousMonth(ctx context.Context, hospitals HospitalLister, now time.Time, loc *time.Location) (int, error) {
	options, err := hospitals.BillingHospitals(ctx)
	if err != nil {
		return 0, fmt.Errorf("list hospitals: %w", err)
	}
	from, to := billing.PreviousMonth(now, loc)
	queued := 0
	for _, h := range options {
		p := WarmReportPayload{
			HospitalID: h.Value,
			DateFrom:   from.Format(time.DateOnly),
			DateTo:     to.Format(time.DateOnly),
		}
		if err := e.EnqueueWarmReport(ctx, p); err != nil {
			return queued, fmt.Errorf("enqueue %s: %w", h.Value, err)
		}
		queued++
	}
	return queued, nil
}
