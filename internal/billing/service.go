package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/backend-klaim/internal/obs"
)

// Querier defines the read access the billing service needs from the store.
type Querier interface {
	GetHospital(ctx context.Context, id string) (Hospital, error)
	ListHospitals(ctx context.Context) ([]Hospital, error)
	ListUsageRecords(ctx context.Context, hospitalID string, from, to time.Time) ([]UsageRecord, error)
	GetServices(ctx context.Context, ids []string) (Catalog, error)
}

// Cache stores computed reports as JSON.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// HospitalOption is a hospital entry for report selection lists.
type HospitalOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Service generates hospital bill reports from store snapshots.
type Service struct {
	Q       Querier
	Cache   Cache
	Builder Builder
}

const reportKeyPrefix = "bill:report:"

// CacheKey returns the cache key of a report for the given filters.
func CacheKey(f Filters) string {
	return reportKeyPrefix + strings.Join([]string{
		strings.TrimSpace(f.HospitalID),
		f.DateFrom.Format(time.DateOnly),
		f.DateTo.Format(time.DateOnly),
	}, ":")
}

// GenerateHospitalBillReport computes the bill report for the filters from the
// current store contents. The cache is never consulted.
func (s *Service) GenerateHospitalBillReport(ctx context.Context, f Filters) (Report, error) {
	h, f, err := s.prepare(ctx, f)
	if err != nil {
		return Report{}, err
	}
	return s.build(ctx, h, f)
}

// CachedHospitalBillReport serves a report precomputed by RefreshHospitalBillReport
// when one is cached and computes and caches it otherwise. The hospital lookup
// and range check run before the cache is read.
func (s *Service) CachedHospitalBillReport(ctx context.Context, f Filters) (Report, error) {
	h, f, err := s.prepare(ctx, f)
	if err != nil {
		return Report{}, err
	}
	key := CacheKey(f)
	if report, ok := s.fromCache(ctx, key); ok {
		countReport("ok")
		return report, nil
	}
	report, err := s.build(ctx, h, f)
	if err != nil {
		return Report{}, err
	}
	s.store(ctx, key, report)
	return report, nil
}

// RefreshHospitalBillReport recomputes the report and overwrites any cached copy.
func (s *Service) RefreshHospitalBillReport(ctx context.Context, f Filters) (Report, error) {
	h, f, err := s.prepare(ctx, f)
	if err != nil {
		return Report{}, err
	}
	report, err := s.build(ctx, h, f)
	if err != nil {
		return Report{}, err
	}
	s.store(ctx, CacheKey(f), report)
	return report, nil
}

// InvalidateReports drops every cached bill report and returns how many were removed.
// It must run whenever the underlying records are replaced.
func (s *Service) InvalidateReports(ctx context.Context) (int, error) {
	if s == nil || s.Cache == nil {
		return 0, nil
	}
	n, err := s.Cache.DeletePrefix(ctx, reportKeyPrefix)
	if err != nil {
		countCache("error")
		return n, fmt.Errorf("invalidate bill reports: %w", err)
	}
	return n, nil
}

// prepare resolves the hospital, then checks the range and pins both bounds to
// their calendar days in the report location.
func (s *Service) prepare(ctx context.Context, f Filters) (Hospital, Filters, error) {
	if s == nil || s.Q == nil {
		return Hospital{}, f, errors.New("billing service not configured")
	}
	f.HospitalID = strings.TrimSpace(f.HospitalID)
	if f.HospitalID == "" {
		countReport("hospital_not_found")
		return Hospital{}, f, fmt.Errorf("hospital id is required: %w", ErrHospitalNotFound)
	}
	hospital, err := s.Q.GetHospital(ctx, f.HospitalID)
	if err != nil {
		if errors.Is(err, ErrHospitalNotFound) {
			countReport("hospital_not_found")
		} else {
			countReport("error")
		}
		return Hospital{}, f, err
	}
	loc := s.Builder.location()
	if err := ValidateRange(f.DateFrom, f.DateTo, loc); err != nil {
		countReport("invalid_range")
		return Hospital{}, f, err
	}
	f.DateFrom = CalendarDay(f.DateFrom, loc)
	f.DateTo = CalendarDay(f.DateTo, loc)
	return hospital, f, nil
}

func (s *Service) build(ctx context.Context, hospital Hospital, f Filters) (Report, error) {
	// Widened by a day on each side so store-side day boundaries never drop a record;
	// Aggregate applies the exact calendar filter.
	records, err := s.Q.ListUsageRecords(ctx, hospital.ID, f.DateFrom.AddDate(0, 0, -1), f.DateTo.AddDate(0, 0, 1))
	if err != nil {
		countReport("error")
		return Report{}, err
	}

	catalog := Catalog{}
	if ids := s.serviceIDs(hospital, records); len(ids) > 0 {
		catalog, err = s.Q.GetServices(ctx, ids)
		if err != nil {
			countReport("error")
			return Report{}, err
		}
	}

	report, err := s.Builder.Aggregate(hospital, records, catalog, f)
	if err != nil {
		countReport("invalid_data")
		return Report{}, err
	}
	countReport("ok")
	if obs.BillReportEntries != nil {
		obs.BillReportEntries.Observe(float64(len(report.Entries)))
	}
	return report, nil
}

// BillingHospitals lists active hospitals ordered by name.
func (s *Service) BillingHospitals(ctx context.Context) ([]HospitalOption, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("billing service not configured")
	}
	hospitals, err := s.Q.ListHospitals(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]HospitalOption, 0, len(hospitals))
	for _, h := range hospitals {
		if !h.Active {
			continue
		}
		out = append(out, HospitalOption{Value: h.ID, Label: h.Name})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (s *Service) serviceIDs(h Hospital, records []UsageRecord) []string {
	if !s.Builder.PerAdmissionUsage {
		return s.Builder.BilledServiceIDs(h, UsageRecord{})
	}
	seen := map[string]struct{}{}
	var ids []string
	for _, rec := range records {
		for _, id := range rec.ServiceIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Service) fromCache(ctx context.Context, key string) (Report, bool) {
	if s.Cache == nil {
		return Report{}, false
	}
	var report Report
	ok, err := s.Cache.GetJSON(ctx, key, &report)
	switch {
	case err != nil:
		countCache("error")
		return Report{}, false
	case !ok:
		countCache("miss")
		return Report{}, false
	}
	countCache("hit")
	return report, true
}

func (s *Service) store(ctx context.Context, key string, report Report) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.SetJSON(ctx, key, report); err != nil {
		countCache("error")
	}
}

func countReport(result string) {
	if obs.BillReportsTotal != nil {
		obs.BillReportsTotal.WithLabelValues(result).Inc()
	}
}

func countCache(result string) {
	if obs.BillReportCacheTotal != nil {
		obs.BillReportCacheTotal.WithLabelValues(result).Inc()
	}
}
