// Package memory keeps billing, ledger and claim data in process memory.
// Reads return copies so callers work on a snapshot taken at call time.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/claims"
	"github.com/noah-isme/backend-klaim/internal/ledger"
	"github.com/noah-isme/backend-klaim/internal/pricing"
	"github.com/noah-isme/backend-klaim/internal/store"
)

// Store implements billing.Querier, ledger.Querier and claims.Querier.
type Store struct {
	mu            sync.RWMutex
	hospitals     map[string]billing.Hospital
	hospitalOrder []string
	services      map[string]pricing.Service
	admissions    []billing.UsageRecord
	claims        []claims.Claim
	transactions  map[string]ledger.Transaction
}

var (
	_ billing.Querier = (*Store)(nil)
	_ ledger.Querier  = (*Store)(nil)
	_ claims.Querier  = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		hospitals:    map[string]billing.Hospital{},
		services:     map[string]pricing.Service{},
		transactions: map[string]ledger.Transaction{},
	}
}

// Ping reports readiness.
func (s *Store) Ping(context.Context) error { return nil }

// GetHospital implements billing.Querier.
func (s *Store) GetHospital(_ context.Context, id string) (billing.Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hospitals[strings.TrimSpace(id)]
	if !ok {
		return billing.Hospital{}, fmt.Errorf("hospital %s: %w", id, billing.ErrHospitalNotFound)
	}
	return copyHospital(h), nil
}

// ListHospitals implements billing.Querier in seed order.
func (s *Store) ListHospitals(context.Context) ([]billing.Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]billing.Hospital, 0, len(s.hospitalOrder))
	for _, id := range s.hospitalOrder {
		out = append(out, copyHospital(s.hospitals[id]))
	}
	return out, nil
}

// ListUsageRecords implements billing.Querier. Bounds are compared on instants, inclusive.
func (s *Store) ListUsageRecords(_ context.Context, hospitalID string, from, to time.Time) ([]billing.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]billing.UsageRecord, 0)
	for _, rec := range s.admissions {
		if rec.HospitalID != hospitalID {
			continue
		}
		if rec.AdmissionDate.Before(from) || rec.AdmissionDate.After(to) {
			continue
		}
		rec.ServiceIDs = append([]string(nil), rec.ServiceIDs...)
		out = append(out, rec)
	}
	return out, nil
}

// GetServices implements billing.Querier. Unknown ids are omitted.
func (s *Store) GetServices(_ context.Context, ids []string) (billing.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(billing.Catalog, len(ids))
	for _, id := range ids {
		if svc, ok := s.services[id]; ok {
			out[id] = svc
		}
	}
	return out, nil
}

// AddAdmission records a usage record.
func (s *Store) AddAdmission(rec billing.UsageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ServiceIDs = append([]string(nil), rec.ServiceIDs...)
	s.admissions = append(s.admissions, rec)
}

// ListTransactions implements ledger.Querier.
func (s *Store) ListTransactions(context.Context) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		out = append(out, t)
	}
	return out, nil
}

// GetTransaction implements ledger.Querier.
func (s *Store) GetTransaction(_ context.Context, id string) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", id, ledger.ErrTransactionNotFound)
	}
	return t, nil
}

// InsertTransaction implements ledger.Querier.
func (s *Store) InsertTransaction(_ context.Context, t ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transactions[t.ID]; exists {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	s.transactions[t.ID] = t
	return nil
}

// UpdateTransaction implements ledger.Querier.
func (s *Store) UpdateTransaction(_ context.Context, t ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[t.ID]; !ok {
		return fmt.Errorf("transaction %s: %w", t.ID, ledger.ErrTransactionNotFound)
	}
	s.transactions[t.ID] = t
	return nil
}

// DeleteTransaction implements ledger.Querier.
func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, ledger.ErrTransactionNotFound)
	}
	delete(s.transactions, id)
	return nil
}

// ListClaims implements claims.Querier.
func (s *Store) ListClaims(_ context.Context, hospitalID string) ([]claims.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]claims.Claim, 0, len(s.claims))
	for _, c := range s.claims {
		if hospitalID == "" || c.HospitalID == hospitalID {
			out = append(out, c)
		}
	}
	return out, nil
}

// HospitalNames implements claims.Querier.
func (s *Store) HospitalNames(context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.hospitals))
	for id, h := range s.hospitals {
		out[id] = h.Name
	}
	return out, nil
}

func copyHospital(h billing.Hospital) billing.Hospital {
	h.AssociatedServiceIDs = append([]string(nil), h.AssociatedServiceIDs...)
	return h
}

// Dataset copies every record, hospitals and admissions in seed order,
// services and transactions ordered by id.
func (s *Store) Dataset() store.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := store.Dataset{
		Hospitals:    make([]billing.Hospital, 0, len(s.hospitalOrder)),
		Services:     make([]pricing.Service, 0, len(s.services)),
		Admissions:   make([]billing.UsageRecord, 0, len(s.admissions)),
		Claims:       append([]claims.Claim(nil), s.claims...),
		Transactions: make([]ledger.Transaction, 0, len(s.transactions)),
	}
	for _, id := range s.hospitalOrder {
		d.Hospitals = append(d.Hospitals, copyHospital(s.hospitals[id]))
	}
	for _, svc := range s.services {
		d.Services = append(d.Services, svc)
	}
	sort.Slice(d.Services, func(i, j int) bool { return d.Services[i].ID < d.Services[j].ID })
	for _, rec := range s.admissions {
		rec.ServiceIDs = append([]string(nil), rec.ServiceIDs...)
		d.Admissions = append(d.Admissions, rec)
	}
	for _, t := range s.transactions {
		d.Transactions = append(d.Transactions, t)
	}
	sort.Slice(d.Transactions, func(i, j int) bool { return d.Transactions[i].ID < d.Transactions[j].ID })
	return d
}
