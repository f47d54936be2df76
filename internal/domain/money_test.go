package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	m, err := ParseAmount("1.30")
	require.NoError(t, err)
	assert.Equal(t, Micros(1_300_000), m)

	m, err = ParseAmount("0.04")
	require.NoError(t, err)
	assert.Equal(t, Micros(40_000), m)

	_, err = ParseAmount("not-a-number")
	assert.Error(t, err)
}

func TestParseAmount_TruncatesBelowMicros(t *testing.T) {
	m, err := ParseAmount("0.0000019")
	require.NoError(t, err)
	assert.Equal(t, Micros(1), m)
}

func TestMicros_String(t *testing.T) {
	assert.Equal(t, "10.50", Micros(10_500_000).String())
	assert.Equal(t, "0.04", Micros(40_000).String())
	assert.Equal(t, "-1.00", Micros(-1_000_000).String())
}

func TestMicros_Mul(t *testing.T) {
	// 3% of 1.30 is 0.039
	commission := Micros(1_300_000).Mul(decimal.NewFromFloat(0.03))
	assert.Equal(t, Micros(39_000), commission)
}

func TestFromDecimal(t *testing.T) {
	assert.Equal(t, Micros(10_500_000), FromDecimal(decimal.NewFromFloat(10.50)))
}
