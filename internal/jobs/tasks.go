// Package jobs defines the background tasks that precompute bill reports.
package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-klaim/internal/billing"
)

const (
	// TypeWarmReport recomputes and caches one hospital's bill report.
	TypeWarmReport = "billing:warm_report"
	// TypeWarmPreviousMonth fans out TypeWarmReport tasks for every active hospital.
	TypeWarmPreviousMonth = "billing:warm_previous_month"

	// DefaultQueue is the asynq queue the billing tasks run on.
	DefaultQueue = "billing"
)

// WarmReportPayload names the report to precompute. Dates are calendar days (2006-01-02).
type WarmReportPayload struct {
	HospitalID string `json:"hospitalId"`
	DateFrom   string `json:"dateFrom"`
	DateTo     string `json:"dateTo"`
}

// Filters converts the payload into report filters in loc.
func (p WarmReportPayload) Filters(loc *time.Location) (billing.Filters, error) {
	if loc == nil {
		loc = time.UTC
	}
	if strings.TrimSpace(p.HospitalID) == "" {
		return billing.Filters{}, fmt.Errorf("warm report payload: hospital id missing")
	}
	from, err := time.ParseInLocation(time.DateOnly, p.DateFrom, loc)
	if err != nil {
		return billing.Filters{}, fmt.Errorf("warm report payload: dateFrom: %w", err)
	}
	to, err := time.ParseInLocation(time.DateOnly, p.DateTo, loc)
	if err != nil {
		return billing.Filters{}, fmt.Errorf("warm report payload: dateTo: %w", err)
	}
	return billing.Filters{HospitalID: p.HospitalID, DateFrom: from, DateTo: to}, nil
}

// TaskID is stable per report so duplicate enqueues collapse.
func (p WarmReportPayload) TaskID() string {
	return strings.Join([]string{"warm", p.HospitalID, p.DateFrom, p.DateTo}, ":")
}

// NewWarmReportTask builds a TypeWarmReport task.
func NewWarmReportTask(p WarmReportPayload) (*asynq.Task, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWarmReport, raw,
		asynq.TaskID(p.TaskID()),
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

// NewWarmPreviousMonthTask builds the fan-out task.
func NewWarmPreviousMonthTask() *asynq.Task {
	return asynq.NewTask(TypeWarmPreviousMonth, nil, asynq.MaxRetry(3))
}
