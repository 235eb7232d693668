// Package postgres implements the billing, ledger and claims stores on pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/claims"
	"github.com/noah-isme/backend-klaim/internal/ledger"
	"github.com/noah-isme/backend-klaim/internal/obs"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads and writes through a pgx pool.
type Store struct {
	db queryable
}

var (
	_ billing.Querier = (*Store)(nil)
	_ ledger.Querier  = (*Store)(nil)
	_ claims.Querier  = (*Store)(nil)
)

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Connect opens a traced pool and verifies it answers.
func Connect(ctx context.Context, databaseURL, appName string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.ConnConfig.Tracer = obs.PGXTracer{}
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = appName

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.db.(*pgxpool.Pool); ok {
		return p.Ping(ctx)
	}
	_, err := s.db.Exec(ctx, `SELECT 1`)
	return err
}

const hospitalCols = `h.id, h.name, h.active, h.reference_name, h.reference_mobile,
	h.commission_type, h.commission_value::text,
	COALESCE(ARRAY(SELECT hs.service_id FROM hospital_services hs WHERE hs.hospital_id = h.id ORDER BY hs.position), '{}')`

func scanHospital(row pgx.Row) (billing.Hospital, error) {
	var r hospitalRow
	if err := row.Scan(&r.ID, &r.Name, &r.Active, &r.ReferenceName, &r.ReferenceMobile,
		&r.CommissionType, &r.CommissionValue, &r.ServiceIDs); err != nil {
		return billing.Hospital{}, err
	}
	return r.hospital()
}

// GetHospital implements billing.Querier.
func (s *Store) GetHospital(ctx context.Context, id string) (billing.Hospital, error) {
	h, err := scanHospital(s.db.QueryRow(ctx, `SELECT `+hospitalCols+` FROM hospitals h WHERE h.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return billing.Hospital{}, fmt.Errorf("hospital %s: %w", id, billing.ErrHospitalNotFound)
	}
	return h, err
}

// ListHospitals implements billing.Querier.
func (s *Store) ListHospitals(ctx context.Context) ([]billing.Hospital, error) {
	rows, err := s.db.Query(ctx, `SELECT `+hospitalCols+` FROM hospitals h ORDER BY h.name, h.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []billing.Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListUsageRecords implements billing.Querier. Bounds are inclusive instants.
func (s *Store) ListUsageRecords(ctx context.Context, hospitalID string, from, to time.Time) ([]billing.UsageRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, patient_name, admission_date, hospital_id, service_ids, payment_status
		FROM admissions
		WHERE hospital_id = $1 AND admission_date BETWEEN $2 AND $3
		ORDER BY seq`, hospitalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]billing.UsageRecord, 0)
	for rows.Next() {
		var (
			rec    billing.UsageRecord
			status string
		)
		if err := rows.Scan(&rec.ID, &rec.PatientName, &rec.AdmissionDate, &rec.HospitalID, &rec.ServiceIDs, &status); err != nil {
			return nil, err
		}
		if rec.PaymentStatus, err = billing.ParsePaymentStatus(status); err != nil {
			return nil, fmt.Errorf("admission %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetServices implements billing.Querier.
func (s *Store) GetServices(ctx context.Context, ids []string) (billing.Catalog, error) {
	out := make(billing.Catalog, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, name, active, price_type, fixed_price::text,
			slab_base_price::text, slab_base_limit::text, slab_additional_price::text, slab_size::text
		FROM services WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r serviceRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Active, &r.PriceType, &r.FixedPrice,
			&r.SlabBasePrice, &r.SlabBaseLimit, &r.SlabAdditionalPrice, &r.SlabSize); err != nil {
			return nil, err
		}
		svc, err := r.service()
		if err != nil {
			return nil, err
		}
		out[svc.ID] = svc
	}
	return out, rows.Err()
}

// ListTransactions implements ledger.Querier.
func (s *Store) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT id, type, date, amount::text, description, category FROM transactions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTransaction implements ledger.Querier.
func (s *Store) GetTransaction(ctx context.Context, id string) (ledger.Transaction, error) {
	t, err := scanTransaction(s.db.QueryRow(ctx,
		`SELECT id, type, date, amount::text, description, category FROM transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", id, ledger.ErrTransactionNotFound)
	}
	return t, err
}

// InsertTransaction implements ledger.Querier.
func (s *Store) InsertTransaction(ctx context.Context, t ledger.Transaction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transactions (id, type, date, amount, description, category)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
		t.ID, string(t.Type), t.Date, t.Amount.String(), t.Description, t.Category)
	return err
}

// UpdateTransaction implements ledger.Querier.
func (s *Store) UpdateTransaction(ctx context.Context, t ledger.Transaction) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE transactions SET type = $2, date = $3, amount = $4::numeric, description = $5, category = $6, updated_at = NOW()
		WHERE id = $1`,
		t.ID, string(t.Type), t.Date, t.Amount.String(), t.Description, t.Category)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, ledger.ErrTransactionNotFound)
	}
	return nil
}

// DeleteTransaction implements ledger.Querier.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", id, ledger.ErrTransactionNotFound)
	}
	return nil
}

// ListClaims implements claims.Querier.
func (s *Store) ListClaims(ctx context.Context, hospitalID string) ([]claims.Claim, error) {
	rows, err := s.db.Query(ctx, `
		SELECT reference_no, claim_number, policy_number, patient_name, hospital_id, stage, status_date
		FROM claims
		WHERE $1 = '' OR hospital_id = $1
		ORDER BY seq`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]claims.Claim, 0)
	for rows.Next() {
		var c claims.Claim
		if err := rows.Scan(&c.ReferenceNo, &c.ClaimNumber, &c.PolicyNumber, &c.PatientName, &c.HospitalID, &c.Stage, &c.StatusDate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// HospitalNames implements claims.Querier.
func (s *Store) HospitalNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM hospitals`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}
