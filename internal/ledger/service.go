package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-klaim/internal/obs"
)

// Querier is the transaction store.
type Querier interface {
	ListTransactions(ctx context.Context) ([]Transaction, error)
	GetTransaction(ctx context.Context, id string) (Transaction, error)
	InsertTransaction(ctx context.Context, t Transaction) error
	UpdateTransaction(ctx context.Context, t Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// Input carries the fields of a new transaction.
type Input struct {
	Type        string          `json:"type" validate:"required"`
	Date        time.Time       `json:"date" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"required"`
	Category    string          `json:"category"`
}

// Patch carries the fields to change on an existing transaction. Nil fields are left as is.
type Patch struct {
	Type        *string          `json:"type"`
	Date        *time.Time       `json:"date"`
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
}

// Service manages ledger transactions.
type Service struct {
	Q     Querier
	NewID func() string
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return "txn-" + uuid.NewString()
}

// List returns every transaction, newest first.
func (s *Service) List(ctx context.Context) ([]Transaction, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("ledger service not configured")
	}
	txns, err := s.Q.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.After(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
	return txns, nil
}

// Get returns a single transaction.
func (s *Service) Get(ctx context.Context, id string) (Transaction, error) {
	if s == nil || s.Q == nil {
		return Transaction{}, errors.New("ledger service not configured")
	}
	return s.Q.GetTransaction(ctx, strings.TrimSpace(id))
}

// Create validates and stores a new transaction.
func (s *Service) Create(ctx context.Context, in Input) (Transaction, error) {
	if s == nil || s.Q == nil {
		return Transaction{}, errors.New("ledger service not configured")
	}
	typ, err := ParseType(in.Type)
	if err != nil {
		return Transaction{}, err
	}
	txn := Transaction{
		ID:          s.newID(),
		Type:        typ,
		Date:        in.Date,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
	}
	if err := txn.Validate(); err != nil {
		return Transaction{}, err
	}
	if err := s.Q.InsertTransaction(ctx, txn); err != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return txn, nil
}

// Update applies p to the transaction with the given id.
func (s *Service) Update(ctx context.Context, id string, p Patch) (Transaction, error) {
	if s == nil || s.Q == nil {
		return Transaction{}, errors.New("ledger service not configured")
	}
	txn, err := s.Q.GetTransaction(ctx, strings.TrimSpace(id))
	if err != nil {
		return Transaction{}, err
	}
	if p.Type != nil {
		if txn.Type, err = ParseType(*p.Type); err != nil {
			return Transaction{}, err
		}
	}
	if p.Date != nil {
		txn.Date = *p.Date
	}
	if p.Amount != nil {
		txn.Amount = *p.Amount
	}
	if p.Description != nil {
		txn.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		txn.Category = strings.TrimSpace(*p.Category)
	}
	if err := txn.Validate(); err != nil {
		return Transaction{}, err
	}
	if err := s.Q.UpdateTransaction(ctx, txn); err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

// Delete removes the transaction with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.Q == nil {
		return errors.New("ledger service not configured")
	}
	return s.Q.DeleteTransaction(ctx, strings.TrimSpace(id))
}

// Balance summarises the current ledger. It is recomputed on every call.
func (s *Service) Balance(ctx context.Context) (BalanceSummary, error) {
	if s == nil || s.Q == nil {
		return BalanceSummary{}, errors.New("ledger service not configured")
	}
	txns, err := s.Q.ListTransactions(ctx)
	if err != nil {
		return BalanceSummary{}, err
	}
	if obs.BalanceSummaryTotal != nil {
		obs.BalanceSummaryTotal.Inc()
	}
	return Summarize(txns), nil
}
