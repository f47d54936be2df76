package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Micros is a monetary amount in USDT micros (10^-6) stored as an int64
// to avoid floating point errors.
type Micros int64

const microsPerUnit = 1_000_000

// FromDecimal converts a decimal.Decimal to Micros, truncating below 10^-6.
func FromDecimal(d decimal.Decimal) Micros {
	return Micros(d.Mul(decimal.NewFromInt(microsPerUnit)).IntPart())
}

// ParseAmount parses a decimal string ("1.30") into Micros.
func ParseAmount(s string) (Micros, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// Decimal converts the amount to a shopspring/decimal.Decimal.
func (m Micros) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(decimal.NewFromInt(microsPerUnit))
}

// String renders the amount with two fractional digits for display.
func (m Micros) String() string {
	return m.Decimal().StringFixed(2)
}

// Mul scales the amount by a decimal factor, rounding down.
func (m Micros) Mul(factor decimal.Decimal) Micros {
	return FromDecimal(m.Decimal().Mul(factor))
}
