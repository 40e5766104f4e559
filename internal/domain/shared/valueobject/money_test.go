package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(12.50), USD)

		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(12.50)))
		assert.Equal(t, USD, m.Currency())
	})

	t.Run("fails with empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(1), "")

		require.Error(t, err)
	})

	t.Run("parses from string", func(t *testing.T) {
		m, err := NewMoneyFromString("35.50", USD)

		require.NoError(t, err)
		assert.Equal(t, "35.50 USD", m.String())
	})

	t.Run("rejects invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", USD)

		require.Error(t, err)
	})
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoneyUSDFromFloat(60)
	b := NewMoneyUSDFromFloat(40)

	t.Run("adds same-currency amounts", func(t *testing.T) {
		sum, err := a.Add(b)

		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromInt(100)))
	})

	t.Run("subtracts same-currency amounts", func(t *testing.T) {
		diff, err := a.Sub(b)

		require.NoError(t, err)
		assert.True(t, diff.Amount().Equal(decimal.NewFromInt(20)))
	})

	t.Run("rejects currency mismatch", func(t *testing.T) {
		other, err := NewMoney(decimal.NewFromInt(5), EUR)
		require.NoError(t, err)

		_, err = a.Add(other)
		require.Error(t, err)

		_, err = a.Sub(other)
		require.Error(t, err)
	})

	t.Run("divides by non-zero", func(t *testing.T) {
		half, err := a.Div(decimal.NewFromInt(2))

		require.NoError(t, err)
		assert.True(t, half.Amount().Equal(decimal.NewFromInt(30)))
	})

	t.Run("rejects division by zero", func(t *testing.T) {
		_, err := a.Div(decimal.Zero)

		require.Error(t, err)
	})
}
