package money

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/cart-api/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		minorUnit int
		mode      RoundingMode
		want      string
	}{
		{"rounds half up", "19.999", 2, RoundHalfUp, "2000"},
		{"zero", "0", 2, RoundHalfUp, "0"},
		{"empty amount", "", 2, RoundHalfUp, "0"},
		{"negative discount", "-5.005", 2, RoundHalfUp, "-501"},
		{"exact cents", "9.99", 2, RoundHalfUp, "999"},
		{"three minor units", "1.2345", 3, RoundHalfUp, "1235"},
		{"zero minor units", "19.4", 0, RoundHalfUp, "19"},
		{"bankers half to even", "0.125", 2, RoundBankers, "12"},
		{"truncate", "19.999", 2, RoundTruncate, "1999"},
		{"large amount", "1234567.89", 2, RoundHalfUp, "123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.amount, tt.minorUnit, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// The wire format is always a plain base-10 integer.
			_, err = strconv.ParseInt(got, 10, 64)
			assert.NoError(t, err)
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	first, err := Normalize("42.424242", 2, RoundHalfUp)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		again, err := Normalize("42.424242", 2, RoundHalfUp)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNormalize_InvalidAmount(t *testing.T) {
	_, err := Normalize("not-a-number", 2, RoundHalfUp)
	assert.Error(t, err)
}

func TestMustNormalize_FallsBackToZero(t *testing.T) {
	assert.Equal(t, "0", MustNormalize("garbage", 2))
	assert.Equal(t, "1998", MustNormalize("19.98", 2))
}

func TestFormatDecimal(t *testing.T) {
	assert.Equal(t, "9.99", FormatDecimal("9.99", 2))
	assert.Equal(t, "10.00", FormatDecimal("9.999", 2))
	assert.Equal(t, "0.00", FormatDecimal("", 2))
	assert.Equal(t, "5.50", FormatDecimal("5.5", 2))
}

func TestFormatPrice(t *testing.T) {
	usd := domain.CurrencyInfo{
		Code:              "USD",
		Symbol:            "$",
		MinorUnit:         2,
		DecimalSeparator:  ".",
		ThousandSeparator: ",",
		Position:          domain.CurrencyPosLeft,
	}

	assert.Equal(t, "$1,234.56", FormatPrice("1234.56", usd))
	assert.Equal(t, "-$5.00", FormatPrice("-5", usd))
	assert.Equal(t, "$0.00", FormatPrice("0", usd))

	eur := domain.CurrencyInfo{
		Code:              "EUR",
		Symbol:            "€",
		MinorUnit:         2,
		DecimalSeparator:  ",",
		ThousandSeparator: ".",
		Position:          domain.CurrencyPosRightSpace,
	}

	assert.Equal(t, "1.234,56 €", FormatPrice("1234.56", eur))
}
