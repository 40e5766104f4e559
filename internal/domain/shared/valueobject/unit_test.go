package valueobject

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	t.Run("converts kilograms to grams", func(t *testing.T) {
		m, err := Convert(decimal.NewFromFloat(2.84), "kg")

		require.NoError(t, err)
		assert.Equal(t, BaseUnitGram, m.BaseUnit())
		assert.True(t, m.BaseValue().Equal(decimal.NewFromInt(2840)), "got %s", m.BaseValue())
	})

	t.Run("converts pounds to grams", func(t *testing.T) {
		m, err := Convert(decimal.NewFromInt(5), "LB")

		require.NoError(t, err)
		assert.Equal(t, BaseUnitGram, m.BaseUnit())
		assert.True(t, m.BaseValue().Equal(decimal.NewFromInt(2268)), "got %s", m.BaseValue())
	})

	t.Run("converts ounces to grams", func(t *testing.T) {
		m, err := Convert(decimal.NewFromInt(2), "oz")

		require.NoError(t, err)
		assert.True(t, m.BaseValue().Equal(decimal.NewFromFloat(56.7)), "got %s", m.BaseValue())
	})

	t.Run("converts liters and centiliters to milliliters", func(t *testing.T) {
		l, err := Convert(decimal.NewFromFloat(1.5), "l")
		require.NoError(t, err)
		assert.Equal(t, BaseUnitMilliliter, l.BaseUnit())
		assert.True(t, l.BaseValue().Equal(decimal.NewFromInt(1500)))

		cl, err := Convert(decimal.NewFromInt(33), "cl")
		require.NoError(t, err)
		assert.True(t, cl.BaseValue().Equal(decimal.NewFromInt(330)))
	})

	t.Run("count units normalize to count", func(t *testing.T) {
		m, err := Convert(decimal.NewFromInt(24), "ea")

		require.NoError(t, err)
		assert.Equal(t, BaseUnitCount, m.BaseUnit())
		assert.True(t, m.BaseValue().Equal(decimal.NewFromInt(24)))
	})

	t.Run("normalizes token case and trailing dot", func(t *testing.T) {
		m, err := Convert(decimal.NewFromInt(1), " lbs. ")

		require.NoError(t, err)
		assert.True(t, m.BaseValue().Equal(decimal.NewFromFloat(453.6)))
	})

	t.Run("fails with UnknownUnitError for unrecognized unit", func(t *testing.T) {
		_, err := Convert(decimal.NewFromInt(1), "caisse")

		require.Error(t, err)
		var unknownErr *UnknownUnitError
		require.True(t, errors.As(err, &unknownErr))
		assert.Equal(t, "caisse", unknownErr.Unit)
	})
}

func TestMeasurement_ConvertTo(t *testing.T) {
	t.Run("round-trips kg through grams", func(t *testing.T) {
		m, err := Convert(decimal.NewFromFloat(2.84), "kg")
		require.NoError(t, err)

		back, err := m.ConvertTo("kg")

		require.NoError(t, err)
		assert.True(t, back.Equal(decimal.NewFromFloat(2.84)), "got %s", back)
	})

	t.Run("round-trips liters through milliliters", func(t *testing.T) {
		m, err := Convert(decimal.NewFromFloat(0.75), "L")
		require.NoError(t, err)

		back, err := m.ConvertTo("L")

		require.NoError(t, err)
		assert.True(t, back.Equal(decimal.NewFromFloat(0.75)))
	})

	t.Run("rejects cross-dimension conversion", func(t *testing.T) {
		m, err := Convert(decimal.NewFromInt(1), "kg")
		require.NoError(t, err)

		_, err = m.ConvertTo("ml")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimension mismatch")
	})

	t.Run("rejects unknown target unit", func(t *testing.T) {
		m, err := Convert(decimal.NewFromInt(1), "kg")
		require.NoError(t, err)

		_, err = m.ConvertTo("stone")

		var unknownErr *UnknownUnitError
		require.True(t, errors.As(err, &unknownErr))
	})
}

func TestIsKnownUnit(t *testing.T) {
	assert.True(t, IsKnownUnit("kg"))
	assert.True(t, IsKnownUnit("ML"))
	assert.True(t, IsKnownUnit("each"))
	assert.False(t, IsKnownUnit("caisse"))
	assert.False(t, IsKnownUnit(""))
}
