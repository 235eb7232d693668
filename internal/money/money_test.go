package money_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-klaim/internal/money"
)

func TestRoundHalfUp(t *testing.T) {
	require.True(t, money.Round(money.MustParse("10.005")).Equal(money.MustParse("10.01")))
	require.True(t, money.Round(money.MustParse("10.004")).Equal(money.MustParse("10.00")))
	require.True(t, money.Round(money.MustParse("0.125")).Equal(money.MustParse("0.13")))
}

func TestPercent(t *testing.T) {
	got := money.Percent(money.MustParse("3000"), money.MustParse("5"))
	require.True(t, got.Equal(money.MustParse("150")), "got %s", got)
}

func TestSumIsExact(t *testing.T) {
	got := money.Sum(money.MustParse("0.1"), money.MustParse("0.2"))
	require.True(t, got.Equal(money.MustParse("0.3")))
	require.True(t, money.Sum().IsZero())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := money.Parse("")
	require.Error(t, err)
	_, err = money.Parse("12,50")
	require.Error(t, err)
	d, err := money.Parse(" 12.50 ")
	require.NoError(t, err)
	require.Equal(t, "12.5", d.String())
}
