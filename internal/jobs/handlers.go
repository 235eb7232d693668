package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/obs"
)

// ReportRefresher recomputes a report and stores it in the cache.
type ReportRefresher interface {
	RefreshHospitalBillReport(ctx context.Context, f billing.Filters) (billing.Report, error)
}

// Handlers processes billing tasks.
type Handlers struct {
	Reports   ReportRefresher
	Hospitals HospitalLister
	Enqueuer  Enqueuer
	Location  *time.Location
	Now       func() time.Time
	Logger    zerolog.Logger
}

// Register mounts the handlers on mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeWarmReport, h.WarmReport)
	mux.HandleFunc(TypeWarmPreviousMonth, h.WarmPreviousMonth)
}

// WarmReport handles TypeWarmReport. Malformed payloads and unknown hospitals are not retried.
func (h *Handlers) WarmReport(ctx context.Context, t *asynq.Task) error {
	var p WarmReportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		countWarmup("invalid")
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	filters, err := p.Filters(h.Location)
	if err != nil {
		countWarmup("invalid")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	report, err := h.Reports.RefreshHospitalBillReport(ctx, filters)
	switch {
	case errors.Is(err, billing.ErrHospitalNotFound), errors.Is(err, billing.ErrInvalidDateRange):
		countWarmup("skipped")
		h.Logger.Warn().Err(err).Str("hospital_id", p.HospitalID).Msg("skip report warmup")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	case err != nil:
		countWarmup("error")
		return err
	}
	countWarmup("ok")
	h.Logger.Info().
		Str("hospital_id", p.HospitalID).
		Str("date_from", p.DateFrom).
		Str("date_to", p.DateTo).
		Int("entries", len(report.Entries)).
		Msg("bill report warmed")
	return nil
}

// WarmPreviousMonth handles TypeWarmPreviousMonth.
func (h *Handlers) WarmPreviousMonth(ctx context.Context, _ *asynq.Task) error {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	queued, err := h.Enqueuer.EnqueuePreviousMonth(ctx, h.Hospitals, now(), h.Location)
	if err != nil {
		return err
	}
	h.Logger.Info().Int("hospitals", queued).Msg("previous month warmups queued")
	return nil
}

func countWarmup(result string) {
	if obs.ReportWarmupTotal != nil {
		obs.ReportWarmupTotal.WithLabelValues(result).Inc()
	}
}
