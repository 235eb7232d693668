package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidPricing is returned when a service carries no usable pricing definition.
var ErrInvalidPricing = errors.New("invalid pricing")

// PriceType is the discriminator stored alongside a service's pricing fields.
type PriceType string

const (
	// PriceTypeFixed charges a flat amount per consumption.
	PriceTypeFixed PriceType = "Fixed"
	// PriceTypeSlab charges a base price up to a limit plus a per-slab increment beyond it.
	PriceTypeSlab PriceType = "Slab-Based"
)

// Pricing is implemented by Fixed and Slab only.
type Pricing interface {
	Type() PriceType
	validate() error
}

// Fixed is a flat price.
type Fixed struct {
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
}

// Type implements Pricing.
func (Fixed) Type() PriceType { return PriceTypeFixed }

func (f Fixed) validate() error {
	if f.Amount.IsNegative() {
		return fmt.Errorf("fixed amount must be non-negative: %w", ErrInvalidPricing)
	}
	return nil
}

// Slab describes tiered pricing.
type Slab struct {
	BasePrice              decimal.Decimal `json:"basePrice" yaml:"basePrice"`
	BaseLimit              decimal.Decimal `json:"baseLimit" yaml:"baseLimit"`
	AdditionalPricePerSlab decimal.Decimal `json:"additionalPricePerSlab" yaml:"additionalPricePerSlab"`
	SlabSize               decimal.Decimal `json:"slabSize" yaml:"slabSize"`
}

// Type implements Pricing.
func (Slab) Type() PriceType { return PriceTypeSlab }

func (s Slab) validate() error {
	switch {
	case s.BasePrice.IsNegative():
		return fmt.Errorf("slab base price must be non-negative: %w", ErrInvalidPricing)
	case s.BaseLimit.IsNegative():
		return fmt.Errorf("slab base limit must be non-negative: %w", ErrInvalidPricing)
	case s.AdditionalPricePerSlab.IsNegative():
		return fmt.Errorf("slab additional price must be non-negative: %w", ErrInvalidPricing)
	case !s.SlabSize.IsPositive():
		return fmt.Errorf("slab size must be positive: %w", ErrInvalidPricing)
	}
	return nil
}

// Service is a billable service definition from the service master.
type Service struct {
	ID      string
	Name    string
	Pricing Pricing
	Active  bool
}

// Validate checks the pricing definition without resolving a price.
func Validate(p Pricing) error {
	if p == nil {
		return fmt.Errorf("no pricing variant populated: %w", ErrInvalidPricing)
	}
	return p.validate()
}

// Resolve returns the price billed for one whole-service consumption.
// Slab-based services resolve to their base price.
func Resolve(p Pricing) (decimal.Decimal, error) {
	if err := Validate(p); err != nil {
		return decimal.Zero, err
	}
	switch v := p.(type) {
	case Fixed:
		return v.Amount, nil
	case Slab:
		return v.BasePrice, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported pricing %T: %w", p, ErrInvalidPricing)
	}
}

// ResolveUsage prices a consumption of the given magnitude. Slab-based services
// charge the base price up to the base limit and one additional price for every
// started slab beyond it.
func ResolveUsage(p Pricing, units decimal.Decimal) (decimal.Decimal, error) {
	if err := Validate(p); err != nil {
		return decimal.Zero, err
	}
	if units.IsNegative() {
		return decimal.Zero, fmt.Errorf("usage must be non-negative: %w", ErrInvalidPricing)
	}
	switch v := p.(type) {
	case Fixed:
		return v.Amount, nil
	case Slab:
		if units.LessThanOrEqual(v.BaseLimit) {
			return v.BasePrice, nil
		}
		slabs := units.Sub(v.BaseLimit).Div(v.SlabSize).Ceil()
		return v.BasePrice.Add(slabs.Mul(v.AdditionalPricePerSlab)), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported pricing %T: %w", p, ErrInvalidPricing)
	}
}

// FromRecord builds a Pricing from the persisted discriminator and its optional
// variant fields. Exactly one variant must be populated and match the discriminator.
func FromRecord(priceType string, fixedPrice *decimal.Decimal, slab *Slab) (Pricing, error) {
	if fixedPrice != nil && slab != nil {
		return nil, fmt.Errorf("both fixed and slab pricing populated: %w", ErrInvalidPricing)
	}
	var p Pricing
	switch PriceType(strings.TrimSpace(priceType)) {
	case PriceTypeFixed:
		if fixedPrice == nil {
			return nil, fmt.Errorf("fixed price missing for %s service: %w", PriceTypeFixed, ErrInvalidPricing)
		}
		p = Fixed{Amount: *fixedPrice}
	case PriceTypeSlab:
		if slab == nil {
			return nil, fmt.Errorf("slab details missing for %s service: %w", PriceTypeSlab, ErrInvalidPricing)
		}
		p = *slab
	default:
		return nil, fmt.Errorf("unknown price type %q: %w", priceType, ErrInvalidPricing)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}
