package commission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-klaim/internal/money"
)

var (
	// ErrInvalidCommissionPolicy is returned when a policy value is outside its allowed range.
	ErrInvalidCommissionPolicy = errors.New("invalid commission policy")
	// ErrNegativeBase indicates the billed amount handed to Compute was negative.
	ErrNegativeBase = errors.New("commission base must be non-negative")
)

// Kind selects how the commission value is interpreted.
type Kind string

const (
	// KindFixed deducts Value regardless of the billed amount.
	KindFixed Kind = "Fixed"
	// KindPercentage deducts Value percent of the billed amount.
	KindPercentage Kind = "Percentage"
)

var maxPercentage = decimal.NewFromInt(100)

// Policy is the commission owed to a hospital's reference person.
type Policy struct {
	Kind  Kind            `json:"commissionType" yaml:"type"`
	Value decimal.Decimal `json:"commissionRate" yaml:"value"`
}

// ParseKind maps a stored commission type onto a Kind.
func ParseKind(raw string) (Kind, error) {
	switch {
	case strings.EqualFold(strings.TrimSpace(raw), string(KindFixed)):
		return KindFixed, nil
	case strings.EqualFold(strings.TrimSpace(raw), string(KindPercentage)):
		return KindPercentage, nil
	default:
		return "", fmt.Errorf("unknown commission type %q: %w", raw, ErrInvalidCommissionPolicy)
	}
}

// NewPolicy builds a validated policy.
func NewPolicy(kind Kind, value decimal.Decimal) (Policy, error) {
	p := Policy{Kind: kind, Value: value}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// MustPolicy is NewPolicy for fixtures and tests; it panics on invalid input.
func MustPolicy(kind Kind, value string) Policy {
	p, err := NewPolicy(kind, money.MustParse(value))
	if err != nil {
		panic(err)
	}
	return p
}

// Validate ensures the policy value is within range for its kind.
func (p Policy) Validate() error {
	if p.Value.IsNegative() {
		return fmt.Errorf("commission value %s is negative: %w", p.Value, ErrInvalidCommissionPolicy)
	}
	switch p.Kind {
	case KindFixed:
		return nil
	case KindPercentage:
		if p.Value.GreaterThan(maxPercentage) {
			return fmt.Errorf("percentage commission %s exceeds 100: %w", p.Value, ErrInvalidCommissionPolicy)
		}
		return nil
	default:
		return fmt.Errorf("unknown commission type %q: %w", p.Kind, ErrInvalidCommissionPolicy)
	}
}

// Compute determines the commission owed on base. Fixed policies return their
// value unchanged; percentage policies are rounded once to two decimals.
func Compute(base decimal.Decimal, p Policy) (decimal.Decimal, error) {
	if err := p.Validate(); err != nil {
		return decimal.Zero, err
	}
	if base.IsNegative() {
		return decimal.Zero, ErrNegativeBase
	}
	if p.Kind == KindFixed {
		return p.Value, nil
	}
	return money.Round(money.Percent(base, p.Value)), nil
}
