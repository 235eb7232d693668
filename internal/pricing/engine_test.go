package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-klaim/internal/money"
	"github.com/noah-isme/backend-klaim/internal/pricing"
)

func dec(v string) decimal.Decimal { return money.MustParse(v) }

func TestResolveFixed(t *testing.T) {
	price, err := pricing.Resolve(pricing.Fixed{Amount: dec("500")})
	require.NoError(t, err)
	require.True(t, price.Equal(dec("500")))
}

func TestResolveSlabUsesBasePrice(t *testing.T) {
	slab := pricing.Slab{BasePrice: dec("1200"), BaseLimit: dec("2"), AdditionalPricePerSlab: dec("300"), SlabSize: dec("1")}
	price, err := pricing.Resolve(slab)
	require.NoError(t, err)
	require.True(t, price.Equal(dec("1200")))
}

func TestResolveRejectsMissingVariant(t *testing.T) {
	_, err := pricing.Resolve(nil)
	require.ErrorIs(t, err, pricing.ErrInvalidPricing)
}

func TestResolveRejectsInvalidValues(t *testing.T) {
	_, err := pricing.Resolve(pricing.Fixed{Amount: dec("-1")})
	require.ErrorIs(t, err, pricing.ErrInvalidPricing)

	_, err = pricing.Resolve(pricing.Slab{BasePrice: dec("10")})
	require.ErrorIs(t, err, pricing.ErrInvalidPricing, "slab size zero must be rejected")
}

func TestResolveUsageTiers(t *testing.T) {
	slab := pricing.Slab{BasePrice: dec("1000"), BaseLimit: dec("3"), AdditionalPricePerSlab: dec("250"), SlabSize: dec("2")}
	cases := []struct {
		units string
		want  string
	}{
		{"0", "1000"},
		{"3", "1000"},
		{"4", "1250"},
		{"5", "1250"},
		{"6", "1500"},
		{"9", "1750"},
	}
	for _, tc := range cases {
		got, err := pricing.ResolveUsage(slab, dec(tc.units))
		require.NoError(t, err)
		require.Truef(t, got.Equal(dec(tc.want)), "units %s: want %s got %s", tc.units, tc.want, got)
	}

	_, err := pricing.ResolveUsage(slab, dec("-1"))
	require.ErrorIs(t, err, pricing.ErrInvalidPricing)

	fixed, err := pricing.ResolveUsage(pricing.Fixed{Amount: dec("75")}, dec("10"))
	require.NoError(t, err)
	require.True(t, fixed.Equal(dec("75")))
}

func TestFromRecord(t *testing.T) {
	p, err := pricing.FromRecord("Fixed", money.Ptr(dec("500")), nil)
	require.NoError(t, err)
	require.Equal(t, pricing.PriceTypeFixed, p.Type())

	slab := &pricing.Slab{BasePrice: dec("100"), BaseLimit: dec("1"), AdditionalPricePerSlab: dec("10"), SlabSize: dec("1")}
	p, err = pricing.FromRecord("Slab-Based", nil, slab)
	require.NoError(t, err)
	require.Equal(t, pricing.PriceTypeSlab, p.Type())

	_, err = pricing.FromRecord("Fixed", nil, slab)
	require.ErrorIs(t, err, pricing.ErrInvalidPricing, "discriminator must match populated variant")

	_, err = pricing.FromRecord("Fixed", money.Ptr(dec("1")), slab)
	require.ErrorIs(t, err, pricing.ErrInvalidPricing, "both variants populated")

	_, err = pricing.FromRecord("Slab-Based", nil, nil)
	require.ErrorIs(t, err, pricing.ErrInvalidPricing)

	_, err = pricing.FromRecord("Hourly", money.Ptr(dec("1")), nil)
	require.ErrorIs(t, err, pricing.ErrInvalidPricing)
}
