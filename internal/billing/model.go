package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-klaim/internal/commission"
)

var (
	// ErrHospitalNotFound is returned when the requested hospital does not exist.
	ErrHospitalNotFound = errors.New("hospital not found")
	// ErrInvalidDateRange is returned when dateTo falls before dateFrom.
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrServiceNotFound is returned when a hospital references a service missing from the service master.
	ErrServiceNotFound = errors.New("service not found")
	// ErrInvalidRecord is returned for usage records missing required fields.
	ErrInvalidRecord = errors.New("invalid usage record")
)

// PaymentStatus is the hospital payment state of a bill entry, supplied by the intake workflow.
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "Pending"
	PaymentReceived      PaymentStatus = "Received"
	PaymentPartiallyPaid PaymentStatus = "Partially Paid"
)

// ParsePaymentStatus maps a stored status onto a PaymentStatus. Empty input means Pending.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	switch strings.ToLower(strings.Join(strings.Fields(raw), " ")) {
	case "", "pending":
		return PaymentPending, nil
	case "received":
		return PaymentReceived, nil
	case "partially paid", "partiallypaid", "partially_paid":
		return PaymentPartiallyPaid, nil
	default:
		return "", fmt.Errorf("unknown payment status %q", raw)
	}
}

// Reference is the person a hospital owes commission to.
type Reference struct {
	Name       string
	Mobile     string
	Commission commission.Policy
}

// Hospital is the subset of the hospital master needed for billing.
type Hospital struct {
	ID                   string
	Name                 string
	Active               bool
	AssociatedServiceIDs []string
	Reference            Reference
}

// UsageRecord is one admission or claim that can generate billable lines.
type UsageRecord struct {
	ID            string
	PatientName   string
	AdmissionDate time.Time
	HospitalID    string
	ServiceIDs    []string
	PaymentStatus PaymentStatus
}

func (r UsageRecord) validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return fmt.Errorf("record id missing: %w", ErrInvalidRecord)
	case strings.TrimSpace(r.HospitalID) == "":
		return fmt.Errorf("record %s has no hospital: %w", r.ID, ErrInvalidRecord)
	case strings.TrimSpace(r.PatientName) == "":
		return fmt.Errorf("record %s has no patient name: %w", r.ID, ErrInvalidRecord)
	case r.AdmissionDate.IsZero():
		return fmt.Errorf("record %s has no admission date: %w", r.ID, ErrInvalidRecord)
	}
	return nil
}

// ServiceLine is one priced service on a bill entry.
type ServiceLine struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Entry is one billable line of a hospital bill.
type Entry struct {
	AdmissionID          string            `json:"admissionId"`
	PatientName          string            `json:"patientName"`
	AdmissionDate        string            `json:"admissionDate"`
	ServicesDetails      []ServiceLine     `json:"servicesDetails"`
	TotalServiceAmount   decimal.Decimal   `json:"totalServiceAmount"`
	Commission           commission.Policy `json:"commission"`
	CalculatedCommission decimal.Decimal   `json:"calculatedCommission"`
	NetAmountToHospital  decimal.Decimal   `json:"netAmountToHospital"`
	PaymentStatus        PaymentStatus     `json:"paymentStatus"`
}

// Summary totals a report's entries.
type Summary struct {
	TotalBillAmount    decimal.Decimal `json:"totalBillAmount"`
	TotalCommission    decimal.Decimal `json:"totalCommission"`
	TotalNetToHospital decimal.Decimal `json:"totalNetToHospital"`
}

// Report is a hospital bill for a date range.
type Report struct {
	HospitalName    string  `json:"hospitalName"`
	ReferencePerson string  `json:"referencePerson"`
	DateFrom        string  `json:"dateFrom"`
	DateTo          string  `json:"dateTo"`
	Entries         []Entry `json:"entries"`
	Summary         Summary `json:"summary"`
}

// Filters selects the records a report covers. Both bounds are inclusive calendar dates.
type Filters struct {
	HospitalID string    `json:"hospitalId" validate:"required"`
	DateFrom   time.Time `json:"dateFrom" validate:"required"`
	DateTo     time.Time `json:"dateTo" validate:"required"`
}
