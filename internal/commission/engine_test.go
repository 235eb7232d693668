package commission_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-klaim/internal/commission"
	"github.com/noah-isme/backend-klaim/internal/money"
)

func TestComputePercent(t *testing.T) {
	p := commission.MustPolicy(commission.KindPercentage, "5")
	got, err := commission.Compute(money.MustParse("3000"), p)
	require.NoError(t, err)
	require.True(t, got.Equal(money.MustParse("150")), "got %s", got)
}

func TestComputePercentRoundsHalfUpOnce(t *testing.T) {
	p := commission.MustPolicy(commission.KindPercentage, "12.5")
	// 0.9 * 12.5% = 0.1125 -> 0.11
	got, err := commission.Compute(money.MustParse("0.9"), p)
	require.NoError(t, err)
	require.Equal(t, "0.11", got.StringFixed(2))

	// 1.4 * 12.5% = 0.175 -> 0.18
	got, err = commission.Compute(money.MustParse("1.4"), p)
	require.NoError(t, err)
	require.Equal(t, "0.18", got.StringFixed(2))
}

func TestComputeFixedIgnoresBase(t *testing.T) {
	p := commission.MustPolicy(commission.KindFixed, "750")
	for _, base := range []string{"0", "100", "99999.99"} {
		got, err := commission.Compute(money.MustParse(base), p)
		require.NoError(t, err)
		require.True(t, got.Equal(money.MustParse("750")))
	}
}

func TestPercentageBounds(t *testing.T) {
	base := money.MustParse("1234.56")
	for _, rate := range []string{"0", "0.01", "33.33", "99.99", "100"} {
		got, err := commission.Compute(base, commission.MustPolicy(commission.KindPercentage, rate))
		require.NoError(t, err)
		require.False(t, got.IsNegative(), "rate %s", rate)
		require.True(t, got.LessThanOrEqual(base), "rate %s produced %s", rate, got)
	}
}

func TestNewPolicyRejectsOutOfRange(t *testing.T) {
	_, err := commission.NewPolicy(commission.KindPercentage, money.MustParse("100.01"))
	require.ErrorIs(t, err, commission.ErrInvalidCommissionPolicy)

	_, err = commission.NewPolicy(commission.KindPercentage, money.MustParse("-1"))
	require.ErrorIs(t, err, commission.ErrInvalidCommissionPolicy)

	_, err = commission.NewPolicy(commission.KindFixed, money.MustParse("-0.01"))
	require.ErrorIs(t, err, commission.ErrInvalidCommissionPolicy)

	_, err = commission.NewPolicy(commission.KindFixed, money.MustParse("100000"))
	require.NoError(t, err, "fixed commission has no upper bound")

	_, err = commission.NewPolicy("Tiered", money.MustParse("1"))
	require.ErrorIs(t, err, commission.ErrInvalidCommissionPolicy)
}

func TestComputeRejectsNegativeBase(t *testing.T) {
	_, err := commission.Compute(money.MustParse("-1"), commission.MustPolicy(commission.KindFixed, "1"))
	require.ErrorIs(t, err, commission.ErrNegativeBase)
}

func TestParseKind(t *testing.T) {
	k, err := commission.ParseKind("percentage")
	require.NoError(t, err)
	require.Equal(t, commission.KindPercentage, k)
	_, err = commission.ParseKind("flat")
	require.ErrorIs(t, err, commission.ErrInvalidCommissionPolicy)
}
