package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestRound(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "4.4955", want: "4.50"},
		{in: "3.336333", want: "3.34"},
		{in: "0.005", want: "0.01"},
		{in: "0.004", want: "0.00"},
		{in: "12", want: "12.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Round(d(tt.in))
			assert.True(t, d(tt.want).Equal(got), "expected %s, got %s", tt.want, got)
			assert.Equal(t, tt.want, Format(got))
		})
	}
}

func TestNonNegative(t *testing.T) {
	assert.True(t, Zero.Equal(NonNegative(d("-0.01"))))
	assert.True(t, d("7.5").Equal(NonNegative(d("7.5"))))
}

func TestPercentAndTimes(t *testing.T) {
	assert.True(t, d("30").Equal(Percent(d("300"), d("10"))))
	assert.True(t, d("150").Equal(Times(d("50"), 3)))
}
