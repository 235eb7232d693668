package billing_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/commission"
	"github.com/noah-isme/backend-klaim/internal/pricing"
)

type stubQueries struct {
	mu           sync.Mutex
	hospitals    map[string]billing.Hospital
	records      []billing.UsageRecord
	catalog      billing.Catalog
	hospitalHits int
	recordHits   int
	recordsErr   error
}

func (s *stubQueries) GetHospital(_ context.Context, id string) (billing.Hospital, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hospitalHits++
	h, ok := s.hospitals[id]
	if !ok {
		return billing.Hospital{}, fmt.Errorf("hospital %s: %w", id, billing.ErrHospitalNotFound)
	}
	return h, nil
}

func (s *stubQueries) ListHospitals(context.Context) ([]billing.Hospital, error) {
	out := make([]billing.Hospital, 0, len(s.hospitals))
	for _, h := range s.hospitals {
		out = append(out, h)
	}
	return out, nil
}

func (s *stubQueries) ListUsageRecords(_ context.Context, hospitalID string, _, _ time.Time) ([]billing.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordHits++
	if s.recordsErr != nil {
		return nil, s.recordsErr
	}
	out := make([]billing.UsageRecord, 0, len(s.records))
	for _, r := range s.records {
		if r.HospitalID == hospitalID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubQueries) GetServices(_ context.Context, ids []string) (billing.Catalog, error) {
	out := billing.Catalog{}
	for _, id := range ids {
		if svc, ok := s.catalog[id]; ok {
			out[id] = svc
		}
	}
	return out, nil
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func fixedService(id, name, amount string) pricing.Service {
	return pricing.Service{ID: id, Name: name, Pricing: pricing.Fixed{Amount: dec(amount)}, Active: true}
}

func newCatalog() billing.Catalog {
	return billing.Catalog{
		"svc1": fixedService("svc1", "Consultation", "500"),
		"svc2": fixedService("svc2", "X-Ray", "2500"),
		"svc3": fixedService("svc3", "Blood Test", "800"),
		"svc4": fixedService("svc4", "MRI Scan", "12000"),
		"svc5": {ID: "svc5", Name: "Physiotherapy", Active: true, Pricing: pricing.Slab{
			BasePrice: dec("1000"), BaseLimit: dec("3"), AdditionalPricePerSlab: dec("250"), SlabSize: dec("2"),
		}},
	}
}

func cityHospital() billing.Hospital {
	return billing.Hospital{
		ID:                   "hosp1",
		Name:                 "City General Hospital",
		Active:               true,
		AssociatedServiceIDs: []string{"svc1", "svc2"},
		Reference: billing.Reference{
			Name:       "Dr. Alice Smith",
			Mobile:     "9876543210",
			Commission: commission.MustPolicy(commission.KindPercentage, "5"),
		},
	}
}

func record(id, hospitalID, patient string, at time.Time) billing.UsageRecord {
	return billing.UsageRecord{ID: id, HospitalID: hospitalID, PatientName: patient, AdmissionDate: at}
}
