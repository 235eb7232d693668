package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrTransactionNotFound is returned when no transaction has the requested id.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrInvalidTransaction is returned when a transaction fails validation.
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// Type distinguishes money flowing in from money flowing out.
type Type string

const (
	TypeIncome  Type = "Income"
	TypeExpense Type = "Expense"
)

// ParseType matches raw case-insensitively against the known transaction types.
func ParseType(raw string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "income":
		return TypeIncome, nil
	case "expense":
		return TypeExpense, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q: %w", raw, ErrInvalidTransaction)
	}
}

// Transaction is one ledger movement.
type Transaction struct {
	ID          string          `json:"id" yaml:"id"`
	Type        Type            `json:"type" yaml:"type"`
	Date        time.Time       `json:"date" yaml:"date"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	Description string          `json:"description" yaml:"description"`
	Category    string          `json:"category,omitempty" yaml:"category,omitempty"`
}

// Validate checks the fields every stored transaction must carry.
func (t Transaction) Validate() error {
	switch {
	case t.Type != TypeIncome && t.Type != TypeExpense:
		return fmt.Errorf("type must be Income or Expense: %w", ErrInvalidTransaction)
	case t.Date.IsZero():
		return fmt.Errorf("date is required: %w", ErrInvalidTransaction)
	case !t.Amount.IsPositive():
		return fmt.Errorf("amount must be positive: %w", ErrInvalidTransaction)
	case strings.TrimSpace(t.Description) == "":
		return fmt.Errorf("description is required: %w", ErrInvalidTransaction)
	}
	return nil
}

// BalanceSummary aggregates the whole ledger.
type BalanceSummary struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetBalance    decimal.Decimal `json:"netBalance"`
}

// Summarize reduces txns into income, expense and net totals. Transactions of
// any other type are ignored.
func Summarize(txns []Transaction) BalanceSummary {
	income, expenses := decimal.Zero, decimal.Zero
	for _, t := range txns {
		switch t.Type {
		case TypeIncome:
			income = income.Add(t.Amount)
		case TypeExpense:
			expenses = expenses.Add(t.Amount)
		}
	}
	return BalanceSummary{
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetBalance:    income.Sub(expenses),
	}
}
