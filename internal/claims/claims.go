package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-klaim/internal/billing"
)

var (
	// ErrClaimNotFound is returned when a lookup matches no claim.
	ErrClaimNotFound = errors.New("claim not found")
	// ErrInvalidSearch is returned when a lookup lacks a hospital or any search criterion.
	ErrInvalidSearch = errors.New("invalid claim search")
)

const notAvailable = "N/A"

// Claim is the tracked status of an insurance claim.
type Claim struct {
	ReferenceNo  string    `json:"referenceNo" yaml:"referenceNo"`
	ClaimNumber  string    `json:"claimNumber,omitempty" yaml:"claimNumber"`
	PolicyNumber string    `json:"policyNumber,omitempty" yaml:"policyNumber"`
	PatientName  string    `json:"patientName,omitempty" yaml:"patientName"`
	HospitalID   string    `json:"hospitalId" yaml:"hospitalId"`
	HospitalName string    `json:"hospitalName,omitempty" yaml:"-"`
	Stage        string    `json:"claimStage" yaml:"stage"`
	StatusDate   time.Time `json:"statusDate" yaml:"statusDate"`
}

// SearchParams selects a single claim within a hospital.
type SearchParams struct {
	HospitalID   string `json:"hospitalId" validate:"required"`
	ClaimNumber  string `json:"claimNumber"`
	PolicyNumber string `json:"policyNumber"`
	PatientName  string `json:"patientName"`
}

// ReportFilters narrows the total-claims report. Zero values disable a filter.
type ReportFilters struct {
	HospitalID string
	DateFrom   time.Time
	DateTo     time.Time
}

// ReportItem is one row of the total-claims report.
type ReportItem struct {
	ID            string `json:"id"`
	ClaimNumber   string `json:"claimNumber"`
	PatientName   string `json:"patientName"`
	HospitalName  string `json:"hospitalName"`
	AdmissionDate string `json:"admissionDate"`
	ClaimStage    string `json:"claimStage"`
	PolicyNumber  string `json:"policyNumber"`
}

// Querier reads claims and hospital names from the store.
type Querier interface {
	// ListClaims returns claims in store order; an empty hospitalID lists all hospitals.
	ListClaims(ctx context.Context, hospitalID string) ([]Claim, error)
	HospitalNames(ctx context.Context) (map[string]string, error)
}

// Service answers claim status lookups and claim reports.
type Service struct {
	Q        Querier
	Location *time.Location
}

func (s *Service) location() *time.Location {
	if s == nil || s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Lookup finds a claim of p.HospitalID by claim number, else policy number,
// else a case-insensitive patient name fragment. The first match in store order wins.
func (s *Service) Lookup(ctx context.Context, p SearchParams) (Claim, error) {
	if s == nil || s.Q == nil {
		return Claim{}, errors.New("claims service not configured")
	}
	p.HospitalID = strings.TrimSpace(p.HospitalID)
	claimNumber := strings.TrimSpace(p.ClaimNumber)
	policyNumber := strings.TrimSpace(p.PolicyNumber)
	patient := strings.ToLower(strings.TrimSpace(p.PatientName))
	if p.HospitalID == "" {
		return Claim{}, fmt.Errorf("hospital id is required: %w", ErrInvalidSearch)
	}
	if claimNumber == "" && policyNumber == "" && patient == "" {
		return Claim{}, fmt.Errorf("claim number, policy number or patient name is required: %w", ErrInvalidSearch)
	}

	list, err := s.Q.ListClaims(ctx, p.HospitalID)
	if err != nil {
		return Claim{}, err
	}
	var match func(Claim) bool
	switch {
	case claimNumber != "":
		match = func(c Claim) bool { return c.ClaimNumber == claimNumber }
	case policyNumber != "":
		match = func(c Claim) bool { return c.PolicyNumber == policyNumber }
	default:
		match = func(c Claim) bool { return strings.Contains(strings.ToLower(c.PatientName), patient) }
	}
	for _, c := range list {
		if c.HospitalID != p.HospitalID || !match(c) {
			continue
		}
		names, err := s.Q.HospitalNames(ctx)
		if err != nil {
			return Claim{}, err
		}
		c.HospitalName = names[c.HospitalID]
		return c, nil
	}
	return Claim{}, ErrClaimNotFound
}

// TotalClaimsReport lists claims matching f. DateTo includes its whole day.
func (s *Service) TotalClaimsReport(ctx context.Context, f ReportFilters) ([]ReportItem, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("claims service not configured")
	}
	loc := s.location()
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() {
		if err := billing.ValidateRange(f.DateFrom, f.DateTo, loc); err != nil {
			return nil, err
		}
	}
	hospitalID := strings.TrimSpace(f.HospitalID)
	list, err := s.Q.ListClaims(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	names, err := s.Q.HospitalNames(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]ReportItem, 0, len(list))
	for _, c := range list {
		if hospitalID != "" && c.HospitalID != hospitalID {
			continue
		}
		day := billing.DateOnly(c.StatusDate, loc)
		if !f.DateFrom.IsZero() && day.Before(billing.CalendarDay(f.DateFrom, loc)) {
			continue
		}
		if !f.DateTo.IsZero() && day.After(billing.CalendarDay(f.DateTo, loc)) {
			continue
		}
		hospitalName := names[c.HospitalID]
		if hospitalName == "" {
			hospitalName = "Unknown Hospital"
		}
		items = append(items, ReportItem{
			ID:            c.ReferenceNo,
			ClaimNumber:   orNA(c.ClaimNumber),
			PatientName:   orNA(c.PatientName),
			HospitalName:  hospitalName,
			AdmissionDate: billing.FormatDate(day),
			ClaimStage:    c.Stage,
			PolicyNumber:  orNA(c.PolicyNumber),
		})
	}
	return items, nil
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return notAvailable
	}
	return v
}
