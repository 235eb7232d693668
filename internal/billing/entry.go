package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-klaim/internal/commission"
	"github.com/noah-isme/backend-klaim/internal/pricing"
)

const (
	// DefaultMaxServices caps the hospital services billed per admission.
	DefaultMaxServices = 3
	// DefaultFallbackName labels the line billed when a hospital has no associated services.
	DefaultFallbackName = "General Services"
)

// DefaultFallbackAmount is the price of the fallback line.
var DefaultFallbackAmount = decimal.NewFromInt(5000)

// Catalog resolves service definitions by id.
type Catalog map[string]pricing.Service

// Builder turns usage records into bill entries.
//
// Until admissions record the services they actually consumed, every admission
// is billed for the first MaxServices services associated with its hospital.
// PerAdmissionUsage switches to the record's own ServiceIDs instead.
type Builder struct {
	MaxServices       int
	FallbackName      string
	FallbackAmount    *decimal.Decimal
	PerAdmissionUsage bool
	Location          *time.Location
}

func (b Builder) maxServices() int {
	if b.MaxServices <= 0 {
		return DefaultMaxServices
	}
	return b.MaxServices
}

func (b Builder) fallback() ServiceLine {
	name := b.FallbackName
	if name == "" {
		name = DefaultFallbackName
	}
	amount := DefaultFallbackAmount
	if b.FallbackAmount != nil {
		amount = *b.FallbackAmount
	}
	return ServiceLine{Name: name, Price: amount}
}

func (b Builder) location() *time.Location {
	if b.Location == nil {
		return time.UTC
	}
	return b.Location
}

// BilledServiceIDs returns the service ids billed for rec at hospital h.
func (b Builder) BilledServiceIDs(h Hospital, rec UsageRecord) []string {
	if b.PerAdmissionUsage {
		return rec.ServiceIDs
	}
	ids := h.AssociatedServiceIDs
	if n := b.maxServices(); len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// Build prices one usage record for hospital h.
func (b Builder) Build(rec UsageRecord, h Hospital, catalog Catalog) (Entry, error) {
	if err := rec.validate(); err != nil {
		return Entry{}, err
	}
	ids := b.BilledServiceIDs(h, rec)
	lines := make([]ServiceLine, 0, len(ids))
	total := decimal.Zero
	for _, id := range ids {
		svc, ok := catalog[id]
		if !ok {
			return Entry{}, fmt.Errorf("hospital %s service %s: %w", h.ID, id, ErrServiceNotFound)
		}
		price, err := pricing.Resolve(svc.Pricing)
		if err != nil {
			return Entry{}, fmt.Errorf("service %s: %w", id, err)
		}
		lines = append(lines, ServiceLine{Name: svc.Name, Price: price})
		total = total.Add(price)
	}
	if len(lines) == 0 {
		fb := b.fallback()
		lines = append(lines, fb)
		total = fb.Price
	}

	commissionAmount, err := commission.Compute(total, h.Reference.Commission)
	if err != nil {
		return Entry{}, fmt.Errorf("hospital %s: %w", h.ID, err)
	}

	status := rec.PaymentStatus
	if status == "" {
		status = PaymentPending
	}

	return Entry{
		AdmissionID:          rec.ID,
		PatientName:          rec.PatientName,
		AdmissionDate:        FormatDate(rec.AdmissionDate.In(b.location())),
		ServicesDetails:      lines,
		TotalServiceAmount:   total,
		Commission:           h.Reference.Commission,
		CalculatedCommission: commissionAmount,
		NetAmountToHospital:  total.Sub(commissionAmount),
		PaymentStatus:        status,
	}, nil
}
