package dice_test

import (
	"math"
	"sort"
	"testing"

	"github.com/cory-johannsen/roll/internal/dice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseRollOption(t *testing.T) {
	cases := map[string]dice.RollOption{
		"":        dice.Normal,
		"normal":  dice.Normal,
		"min":     dice.Minimum,
		"Minimum": dice.Minimum,
		"MAX":     dice.Maximum,
		"maximum": dice.Maximum,
	}
	for in, want := range cases {
		got, err := dice.ParseRollOption(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := dice.ParseRollOption("average")
	assert.Error(t, err)
}

func TestRollOption_String(t *testing.T) {
	assert.Equal(t, "normal", dice.Normal.String())
	assert.Equal(t, "minimum", dice.Minimum.String())
	assert.Equal(t, "maximum", dice.Maximum.String())
	assert.Equal(t, "RollOption(9)", dice.RollOption(9).String())
}

// TestRollResults_String verifies the "<notation>: [v1, v2]" format used by
// "Rolled:" history lines.
func TestRollResults_String(t *testing.T) {
	rr := &dice.RollResults{Notation: "4d6", Values: []float64{1, 6, 2.5, -3}}
	assert.Equal(t, "4d6: [1, 6, 2.5, -3]", rr.String())
	assert.Equal(t, 6.5, rr.Sum())
}

func TestRollResults_KeepHighest(t *testing.T) {
	rr := &dice.RollResults{Notation: "4d6", Values: []float64{5, 2, 6, 1}}
	removed, err := rr.KeepHighest(3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, removed)
	assert.Equal(t, []float64{2, 5, 6}, rr.Values)
}

func TestRollResults_KeepLowest(t *testing.T) {
	rr := &dice.RollResults{Notation: "4d6", Values: []float64{5, 2, 6, 1}}
	removed, err := rr.KeepLowest(2)
	require.NoError(t, err)
	assert.Equal(t, 11.0, removed)
	assert.Equal(t, []float64{1, 2}, rr.Values)
}

func TestRollResults_KeepRoundsUp(t *testing.T) {
	rr := &dice.RollResults{Notation: "4d6", Values: []float64{5, 2, 6, 1}}
	removed, err := rr.KeepHighest(1.2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, removed)
	assert.Equal(t, []float64{5, 6}, rr.Values)
}

func TestRollResults_KeepMoreThanRolled(t *testing.T) {
	rr := &dice.RollResults{Notation: "2d6", Values: []float64{4, 3}}
	removed, err := rr.KeepHighest(5)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Len(t, rr.Values, 2)
}

func TestRollResults_KeepZero(t *testing.T) {
	rr := &dice.RollResults{Notation: "2d6", Values: []float64{4, 3}}
	removed, err := rr.KeepLowest(0)
	require.NoError(t, err)
	assert.Equal(t, 7.0, removed)
	assert.Empty(t, rr.Values)
}

func TestRollResults_Drop(t *testing.T) {
	rr := &dice.RollResults{Notation: "4d6", Values: []float64{5, 2, 6, 1}}
	removed, err := rr.DropLowest(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, removed)
	assert.Equal(t, []float64{2, 5, 6}, rr.Values)

	removed, err = rr.DropHighest(2)
	require.NoError(t, err)
	assert.Equal(t, 11.0, removed)
	assert.Equal(t, []float64{2}, rr.Values)

	removed, err = rr.DropHighest(4)
	require.NoError(t, err)
	assert.Equal(t, 2.0, removed)
	assert.Empty(t, rr.Values)
}

func TestRollResults_NegativeCount(t *testing.T) {
	rr := &dice.RollResults{Notation: "2d6", Values: []float64{4, 3}}
	for _, fn := range []func(float64) (float64, error){rr.KeepLowest, rr.KeepHighest, rr.DropLowest, rr.DropHighest} {
		_, err := fn(-1)
		assert.ErrorIs(t, err, dice.ErrInvalidOperand)
	}
	_, err := rr.KeepHighest(math.NaN())
	assert.ErrorIs(t, err, dice.ErrInvalidOperand)
	assert.Equal(t, []float64{4, 3}, rr.Values, "a rejected count must not touch the values")
}

// TestRollResults_Keep_Property verifies that keeping k values removes exactly
// the sum of the discarded values and keeps the k largest.
func TestRollResults_Keep_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		values := rapid.SliceOfN(rapid.IntRange(1, 20), 1, 12).Draw(rt, "values")
		k := rapid.IntRange(0, 14).Draw(rt, "k")

		rr := &dice.RollResults{Notation: "Nd20"}
		for _, v := range values {
			rr.Values = append(rr.Values, float64(v))
		}
		before := rr.Sum()

		removed, err := rr.KeepHighest(float64(k))
		require.NoError(rt, err)
		assert.Equal(rt, before, rr.Sum()+removed, "removed amount must account for every discarded value")
		assert.Equal(rt, min(k, len(values)), len(rr.Values))

		sorted := append([]int(nil), values...)
		sort.Ints(sorted)
		for i, v := range rr.Values {
			assert.Equal(rt, float64(sorted[len(sorted)-len(rr.Values)+i]), v)
		}
	})
}

// TestRollResults_KeepIdempotent verifies that once a group holds k values,
// keeping k highest then k lowest changes nothing.
func TestRollResults_KeepIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		values := rapid.SliceOfN(rapid.IntRange(1, 20), 1, 12).Draw(rt, "values")
		rr := &dice.RollResults{Notation: "Nd20"}
		for _, v := range values {
			rr.Values = append(rr.Values, float64(v))
		}
		k := float64(len(values))

		removed, err := rr.KeepHighest(k)
		require.NoError(rt, err)
		assert.Zero(rt, removed)
		snapshot := append([]float64(nil), rr.Values...)

		removed, err = rr.KeepLowest(k)
		require.NoError(rt, err)
		assert.Zero(rt, removed)
		assert.Equal(rt, snapshot, rr.Values)
	})
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		4:       "4",
		-27:     "-27",
		224.5:   "224.5",
		42.625:  "42.625",
		0:       "0",
		1e20:    "1e+20",
		math.Pi: "3.141592653589793",
	}
	for in, want := range cases {
		assert.Equal(t, want, dice.FormatNumber(in))
	}
}
