package helpers

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
)

func TestSubtotalAndTotals(t *testing.T) {
	t.Parallel()
	lines := []Line{
		{UnitPriceCents: 45000, Quantity: 2, Currency: enums.CurrencyCOP},
		{UnitPriceCents: 49000, Quantity: 1, Currency: enums.CurrencyCOP},
	}
	subtotal := Subtotal(lines)
	require.Equal(t, int64(139000), subtotal)

	totals := ComputeTotals(subtotal, 13900, 0, 0)
	require.Equal(t, int64(125100), totals.TotalCents)

	clamped := ComputeTotals(1000, 5000, 0, 0)
	require.Equal(t, int64(0), clamped.TotalCents)

	withExtras := ComputeTotals(1000, 5000, 3000, 1500)
	require.Equal(t, int64(500), withExtras.TotalCents)
}

func TestSingleCurrency(t *testing.T) {
	t.Parallel()
	currency, err := SingleCurrency([]Line{{Currency: enums.CurrencyUSD}, {Currency: enums.CurrencyUSD}})
	require.NoError(t, err)
	require.Equal(t, enums.CurrencyUSD, currency)

	_, err = SingleCurrency([]Line{{Currency: enums.CurrencyUSD}, {Currency: enums.CurrencyCOP}})
	require.Equal(t, pkgerrors.CodeMixedCurrency, pkgerrors.As(err).Code())

	_, err = SingleCurrency(nil)
	require.Equal(t, pkgerrors.CodeEmptyCart, pkgerrors.As(err).Code())
}

func TestNewOrderNumber(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)
	number, err := NewOrderNumber(now)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^PF-20250309-[0-9A-Z]{6}$`), number)

	other, err := NewOrderNumber(now)
	require.NoError(t, err)
	require.NotEqual(t, number, other)
}
