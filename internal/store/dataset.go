// Package store holds what the memory and postgres stores exchange.
package store

import (
	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/claims"
	"github.com/noah-isme/backend-klaim/internal/ledger"
	"github.com/noah-isme/backend-klaim/internal/pricing"
)

// Dataset is a full copy of the billing, claims and ledger records.
type Dataset struct {
	Hospitals    []billing.Hospital
	Services     []pricing.Service
	Admissions   []billing.UsageRecord
	Claims       []claims.Claim
	Transactions []ledger.Transaction
}
