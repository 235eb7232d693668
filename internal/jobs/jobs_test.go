package jobs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/jobs"
)

type stubRefresher struct {
	calls []billing.Filters
	err   error
}

func (s *stubRefresher) RefreshHospitalBillReport(_ context.Context, f billing.Filters) (billing.Report, error) {
	s.calls = append(s.calls, f)
	if s.err != nil {
		return billing.Report{}, s.err
	}
	return billing.Report{HospitalName: "General Hospital"}, nil
}

type stubHospitals []billing.HospitalOption

func (s stubHospitals) BillingHospitals(context.Context) ([]billing.HospitalOption, error) {
	return s, nil
}

func newClient(t *testing.T) (*miniredis.Miniredis, *asynq.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client := asynq.NewClientFromRedisClient(rdb)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, client
}

func TestWarmReportPayloadFilters(t *testing.T) {
	p := jobs.WarmReportPayload{HospitalID: "hosp1", DateFrom: "2024-02-01", DateTo: "2024-02-29"}
	f, err := p.Filters(time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), f.DateTo)
	require.Equal(t, "warm:hosp1:2024-02-01:2024-02-29", p.TaskID())

	_, err = jobs.WarmReportPayload{DateFrom: "2024-02-01", DateTo: "2024-02-29"}.Filters(nil)
	require.Error(t, err)
	_, err = jobs.WarmReportPayload{HospitalID: "h", DateFrom: "Feb 1", DateTo: "2024-02-29"}.Filters(nil)
	require.Error(t, err)
}

func TestWarmReportHandler(t *testing.T) {
	refresher := &stubRefresher{}
	h := &jobs.Handlers{Reports: refresher, Logger: zerolog.Nop()}
	task, err := jobs.NewWarmReportTask(jobs.WarmReportPayload{HospitalID: "hosp1", DateFrom: "2024-02-01", DateTo: "2024-02-29"})
	require.NoError(t, err)

	require.NoError(t, h.WarmReport(context.Background(), task))
	require.Len(t, refresher.calls, 1)
	require.Equal(t, "hosp1", refresher.calls[0].HospitalID)
}

func TestWarmReportHandlerSkipsPermanentFailures(t *testing.T) {
	h := &jobs.Handlers{Reports: &stubRefresher{err: billing.ErrHospitalNotFound}, Logger: zerolog.Nop()}
	task, err := jobs.NewWarmReportTask(jobs.WarmReportPayload{HospitalID: "ghost", DateFrom: "2024-02-01", DateTo: "2024-02-29"})
	require.NoError(t, err)
	err = h.WarmReport(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = h.WarmReport(context.Background(), asynq.NewTask(jobs.TypeWarmReport, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWarmReportHandlerRetriesTransientFailures(t *testing.T) {
	transient := errors.New("redis timeout")
	h := &jobs.Handlers{Reports: &stubRefresher{err: transient}, Logger: zerolog.Nop()}
	task, err := jobs.NewWarmReportTask(jobs.WarmReportPayload{HospitalID: "hosp1", DateFrom: "2024-02-01", DateTo: "2024-02-29"})
	require.NoError(t, err)
	err = h.WarmReport(context.Background(), task)
	require.ErrorIs(t, err, transient)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestEnqueuePreviousMonth(t *testing.T) {
	mr, client := newClient(t)
	enq := jobs.Enqueuer{Client: client}
	hospitals := stubHospitals{{Value: "hosp1", Label: "General Hospital"}, {Value: "hosp2", Label: "City Central Clinic"}}
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	queued, err := enq.EnqueuePreviousMonth(context.Background(), hospitals, now, time.UTC)
	require.NoError(t, err)
	require.Equal(t, 2, queued)
	require.True(t, mr.Exists("asynq:{billing}:t:warm:hosp1:2024-02-01:2024-02-29"))

	queued, err = enq.EnqueuePreviousMonth(context.Background(), hospitals, now, time.UTC)
	require.NoError(t, err)
	require.Equal(t, 2, queued)

	pending, err := mr.List("asynq:{billing}:pending")
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestWarmPreviousMonthHandler(t *testing.T) {
	mr, client := newClient(t)
	h := &jobs.Handlers{
		Hospitals: stubHospitals{{Value: "hosp1", Label: "General Hospital"}},
		Enqueuer:  jobs.Enqueuer{Client: client, Queue: "reports"},
		Now:       func() time.Time { return time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC) },
		Logger:    zerolog.Nop(),
	}
	require.NoError(t, h.WarmPreviousMonth(context.Background(), jobs.NewWarmPreviousMonthTask()))

	raw := mr.HGet("asynq:{reports}:t:warm:hosp1:2023-12-01:2023-12-31", "msg")
	require.NotEmpty(t, raw)
}

func TestEnqueueWithoutClient(t *testing.T) {
	err := jobs.Enqueuer{}.EnqueueWarmReport(context.Background(), jobs.WarmReportPayload{HospitalID: "h"})
	require.Error(t, err)
}

func TestRegisterRoutesTasks(t *testing.T) {
	refresher := &stubRefresher{}
	h := &jobs.Handlers{Reports: refresher, Logger: zerolog.Nop()}
	mux := asynq.NewServeMux()
	h.Register(mux)

	payload, err := json.Marshal(jobs.WarmReportPayload{HospitalID: "hosp1", DateFrom: "2024-02-01", DateTo: "2024-02-29"})
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(jobs.TypeWarmReport, payload)))
	require.Len(t, refresher.calls, 1)
}

func TestLoggerWritesLevels(t *testing.T) {
	var buf bytes.Buffer
	l := jobs.Logger{L: zerolog.New(&buf)}
	l.Info("worker ", "started")
	l.Warn("slow")
	require.Contains(t, buf.String(), `"level":"info","message":"worker started"`)
	require.Contains(t, buf.String(), `"level":"warn"`)
}
