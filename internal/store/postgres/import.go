package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-klaim/internal/pricing"
	"github.com/noah-isme/backend-klaim/internal/store"
)

// Import upserts every record of d in a single transaction.
func Import(ctx context.Context, pool *pgxpool.Pool, d store.Dataset) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, svc := range d.Services {
			args, err := serviceArgs(svc)
			if err != nil {
				return err
			}
			batch.Queue(`
				INSERT INTO services (id, name, active, price_type, fixed_price,
					slab_base_price, slab_base_limit, slab_additional_price, slab_size)
				VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric)
				ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, active = EXCLUDED.active,
					price_type = EXCLUDED.price_type, fixed_price = EXCLUDED.fixed_price,
					slab_base_price = EXCLUDED.slab_base_price, slab_base_limit = EXCLUDED.slab_base_limit,
					slab_additional_price = EXCLUDED.slab_additional_price, slab_size = EXCLUDED.slab_size`,
				args...)
		}
		for _, h := range d.Hospitals {
			batch.Queue(`
				INSERT INTO hospitals (id, name, active, reference_name, reference_mobile, commission_type, commission_value)
				VALUES ($1, $2, $3, $4, $5, $6, $7::numeric)
				ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, active = EXCLUDED.active,
					reference_name = EXCLUDED.reference_name, reference_mobile = EXCLUDED.reference_mobile,
					commission_type = EXCLUDED.commission_type, commission_value = EXCLUDED.commission_value`,
				h.ID, h.Name, h.Active, h.Reference.Name, h.Reference.Mobile,
				string(h.Reference.Commission.Kind), h.Reference.Commission.Value.String())
			batch.Queue(`DELETE FROM hospital_services WHERE hospital_id = $1`, h.ID)
			for pos, svcID := range h.AssociatedServiceIDs {
				batch.Queue(`INSERT INTO hospital_services (hospital_id, service_id, position) VALUES ($1, $2, $3)`,
					h.ID, svcID, pos)
			}
		}
		for _, rec := range d.Admissions {
			batch.Queue(`
				INSERT INTO admissions (id, hospital_id, patient_name, admission_date, service_ids, payment_status)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE SET hospital_id = EXCLUDED.hospital_id, patient_name = EXCLUDED.patient_name,
					admission_date = EXCLUDED.admission_date, service_ids = EXCLUDED.service_ids,
					payment_status = EXCLUDED.payment_status`,
				rec.ID, rec.HospitalID, rec.PatientName, rec.AdmissionDate, nonNil(rec.ServiceIDs), string(rec.PaymentStatus))
		}
		for _, c := range d.Claims {
			batch.Queue(`
				INSERT INTO claims (reference_no, hospital_id, claim_number, policy_number, patient_name, stage, status_date)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (reference_no) DO UPDATE SET hospital_id = EXCLUDED.hospital_id,
					claim_number = EXCLUDED.claim_number, policy_number = EXCLUDED.policy_number,
					patient_name = EXCLUDED.patient_name, stage = EXCLUDED.stage, status_date = EXCLUDED.status_date`,
				c.ReferenceNo, c.HospitalID, c.ClaimNumber, c.PolicyNumber, c.PatientName, c.Stage, c.StatusDate)
		}
		for _, t := range d.Transactions {
			batch.Queue(`
				INSERT INTO transactions (id, type, date, amount, description, category)
				VALUES ($1, $2, $3, $4::numeric, $5, $6)
				ON CONFLICT (id) DO UPDATE SET type = EXCLUDED.type, date = EXCLUDED.date, amount = EXCLUDED.amount,
					description = EXCLUDED.description, category = EXCLUDED.category, updated_at = NOW()`,
				t.ID, string(t.Type), t.Date, t.Amount.String(), t.Description, t.Category)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("import dataset: %w", err)
		}
		return nil
	})
}

// serviceArgs flattens a service into the discriminator and nullable columns of the services table.
func serviceArgs(svc pricing.Service) ([]any, error) {
	args := []any{svc.ID, svc.Name, svc.Active, nil, nil, nil, nil, nil, nil}
	switch p := svc.Pricing.(type) {
	case pricing.Fixed:
		args[3] = string(pricing.PriceTypeFixed)
		args[4] = decimalText(p.Amount)
	case pricing.Slab:
		args[3] = string(pricing.PriceTypeSlab)
		args[5] = decimalText(p.BasePrice)
		args[6] = decimalText(p.BaseLimit)
		args[7] = decimalText(p.AdditionalPricePerSlab)
		args[8] = decimalText(p.SlabSize)
	default:
		return nil, fmt.Errorf("service %s: %w", svc.ID, pricing.ErrInvalidPricing)
	}
	return args, nil
}

func decimalText(d decimal.Decimal) *string {
	s := d.String()
	return &s
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
