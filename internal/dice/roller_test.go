package dice_test

import (
	"math"
	"testing"

	"github.com/cory-johannsen/roll/internal/dice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func sum(vs []float64) float64 {
	total := 0.0
	for _, v := range vs {
		total += v
	}
	return total
}

// TestRollDice_ForcedModes_Property verifies that Minimum rolls total n and
// Maximum rolls total n*s for whole dice.
func TestRollDice_ForcedModes_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 200).Draw(rt, "n")
		s := rapid.IntRange(1, 100).Draw(rt, "s")

		low, err := dice.RollDice(float64(n), float64(s), dice.Minimum, nil, 0)
		require.NoError(rt, err)
		assert.Len(rt, low, n)
		assert.Equal(rt, float64(n), sum(low))

		high, err := dice.RollDice(float64(n), float64(s), dice.Maximum, nil, 0)
		require.NoError(rt, err)
		assert.Equal(rt, float64(n*s), sum(high))
	})
}

// TestRollDice_Normal_Property verifies every face lies in [1, s].
func TestRollDice_Normal_Property(t *testing.T) {
	src := dice.NewSeededSource(42)
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 50).Draw(rt, "n")
		s := rapid.IntRange(1, 100).Draw(rt, "s")

		values, err := dice.RollDice(float64(n), float64(s), dice.Normal, src, dice.DefaultLimits.MaxDice)
		require.NoError(rt, err)
		require.Len(rt, values, n)
		for _, v := range values {
			assert.GreaterOrEqual(rt, v, 1.0)
			assert.LessOrEqual(rt, v, float64(s))
		}
		total := sum(values)
		assert.GreaterOrEqual(rt, total, float64(n))
		assert.LessOrEqual(rt, total, float64(n*s))
	})
}

func TestRollDice_FractionalCount(t *testing.T) {
	values, err := dice.RollDice(2.5, 6, dice.Maximum, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 6, 3}, values, "the partial die has ceil(6*0.5) faces")

	values, err = dice.RollDice(0.25, 100, dice.Minimum, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, values)

	values, err = dice.RollDice(0.75, 8, dice.Maximum, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{6}, values)
}

func TestRollDice_FractionalSidesRoundUp(t *testing.T) {
	values, err := dice.RollDice(2, 19.01, dice.Maximum, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 20}, values)
}

func TestRollDice_NegativeCountNegatesValues(t *testing.T) {
	values, err := dice.RollDice(-3, 4, dice.Maximum, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{-4, -4, -4}, values)
}

func TestRollDice_ZeroSides(t *testing.T) {
	for _, mode := range []dice.RollOption{dice.Normal, dice.Maximum} {
		values, err := dice.RollDice(3, 0, mode, dice.NewCryptoSource(), 0)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0, 0}, values, mode.String())
	}
}

func TestRollDice_MinimumZeroSidesShowsOne(t *testing.T) {
	values, err := dice.RollDice(3, 0, dice.Minimum, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, values)

	values, err = dice.RollDice(1.5, 0, dice.Minimum, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, values, "the fractional extra die also shows 1")
}

func TestRollDice_ZeroDice(t *testing.T) {
	values, err := dice.RollDice(0, 20, dice.Normal, dice.NewCryptoSource(), 0)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestRollDice_Errors(t *testing.T) {
	_, err := dice.RollDice(1, -20, dice.Normal, dice.NewCryptoSource(), 0)
	assert.ErrorIs(t, err, dice.ErrInvalidOperand)

	_, err = dice.RollDice(math.NaN(), 6, dice.Normal, dice.NewCryptoSource(), 0)
	assert.ErrorIs(t, err, dice.ErrInvalidOperand)

	_, err = dice.RollDice(1, math.Inf(1), dice.Normal, dice.NewCryptoSource(), 0)
	assert.ErrorIs(t, err, dice.ErrInvalidOperand)

	_, err = dice.RollDice(101, 6, dice.Minimum, nil, 100)
	assert.ErrorIs(t, err, dice.ErrTooComplex)

	_, err = dice.RollDice(1, math.Pow(10, 300), dice.Maximum, nil, 0)
	assert.ErrorIs(t, err, dice.ErrTooComplex)

	_, err = dice.RollDice(-100.5, 6, dice.Minimum, nil, 100)
	assert.ErrorIs(t, err, dice.ErrTooComplex)
}

func TestRollDice_UsesSource(t *testing.T) {
	values, err := dice.RollDice(4, 6, dice.Normal, newScriptedSource(5, 2, 6, 1), 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 2, 6, 1}, values)
}
