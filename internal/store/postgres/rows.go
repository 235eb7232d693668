package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/commission"
	"github.com/noah-isme/backend-klaim/internal/ledger"
	"github.com/noah-isme/backend-klaim/internal/money"
	"github.com/noah-isme/backend-klaim/internal/pricing"
)

// NUMERIC columns are selected as text and parsed into decimals here.

type hospitalRow struct {
	ID              string
	Name            string
	Active          bool
	ReferenceName   string
	ReferenceMobile string
	CommissionType  string
	CommissionValue string
	ServiceIDs      []string
}

func (r hospitalRow) hospital() (billing.Hospital, error) {
	kind, err := commission.ParseKind(r.CommissionType)
	if err != nil {
		return billing.Hospital{}, fmt.Errorf("hospital %s: %w", r.ID, err)
	}
	value, err := money.Parse(r.CommissionValue)
	if err != nil {
		return billing.Hospital{}, fmt.Errorf("hospital %s commission: %w", r.ID, err)
	}
	policy, err := commission.NewPolicy(kind, value)
	if err != nil {
		return billing.Hospital{}, fmt.Errorf("hospital %s: %w", r.ID, err)
	}
	return billing.Hospital{
		ID:                   r.ID,
		Name:                 r.Name,
		Active:               r.Active,
		AssociatedServiceIDs: r.ServiceIDs,
		Reference: billing.Reference{
			Name:       r.ReferenceName,
			Mobile:     r.ReferenceMobile,
			Commission: policy,
		},
	}, nil
}

type serviceRow struct {
	ID                  string
	Name                string
	Active              bool
	PriceType           string
	FixedPrice          *string
	SlabBasePrice       *string
	SlabBaseLimit       *string
	SlabAdditionalPrice *string
	SlabSize            *string
}

func (r serviceRow) service() (pricing.Service, error) {
	fixed, err := optionalDecimal(r.FixedPrice)
	if err != nil {
		return pricing.Service{}, fmt.Errorf("service %s fixed price: %w", r.ID, err)
	}
	var slab *pricing.Slab
	if r.SlabBasePrice != nil {
		parts := []*string{r.SlabBasePrice, r.SlabBaseLimit, r.SlabAdditionalPrice, r.SlabSize}
		values := make([]decimal.Decimal, len(parts))
		for i, p := range parts {
			d, err := optionalDecimal(p)
			if err != nil {
				return pricing.Service{}, fmt.Errorf("service %s slab: %w", r.ID, err)
			}
			if d == nil {
				return pricing.Service{}, fmt.Errorf("service %s slab incomplete: %w", r.ID, pricing.ErrInvalidPricing)
			}
			values[i] = *d
		}
		slab = &pricing.Slab{BasePrice: values[0], BaseLimit: values[1], AdditionalPricePerSlab: values[2], SlabSize: values[3]}
	}
	p, err := pricing.FromRecord(r.PriceType, fixed, slab)
	if err != nil {
		return pricing.Service{}, fmt.Errorf("service %s: %w", r.ID, err)
	}
	return pricing.Service{ID: r.ID, Name: r.Name, Pricing: p, Active: r.Active}, nil
}

func optionalDecimal(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := money.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanTransaction(row pgx.Row) (ledger.Transaction, error) {
	var (
		t      ledger.Transaction
		typ    string
		amount string
	)
	if err := row.Scan(&t.ID, &typ, &t.Date, &amount, &t.Description, &t.Category); err != nil {
		return ledger.Transaction{}, err
	}
	var err error
	if t.Type, err = ledger.ParseType(typ); err != nil {
		return ledger.Transaction{}, err
	}
	if t.Amount, err = money.Parse(amount); err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s amount: %w", t.ID, err)
	}
	return t, nil
}
