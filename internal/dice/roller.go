package dice

import (
	"fmt"
	"math"
)

// RollDice rolls numDice dice of the given sides under mode and returns the
// individual face values.
//
// Sides are rounded up before rolling. A fractional numDice rolls
// floor(numDice) full dice plus one extra die with ceil(sides*frac) faces, so
// a partial die contributes proportionally fewer faces. A negative numDice
// rolls abs(numDice) dice and negates every value. Minimum mode shows 1 on
// every die; otherwise zero-sided dice show 0.
//
// Precondition: src must be non-nil when mode is Normal.
// Postcondition: len(result) == floor(|numDice|), plus one if numDice is
// fractional; or a non-nil error wrapping ErrInvalidOperand or ErrTooComplex.
func RollDice(numDice, sides float64, mode RollOption, src Source, maxDice int) ([]float64, error) {
	if math.IsNaN(numDice) || math.IsNaN(sides) || math.IsInf(numDice, 0) || math.IsInf(sides, 0) {
		return nil, fmt.Errorf("%w: cannot roll %sd%s", ErrInvalidOperand, formatNumber(numDice), formatNumber(sides))
	}
	if sides < 0 {
		return nil, fmt.Errorf("%w: the sides of a die must be positive or zero, got %s", ErrInvalidOperand, formatNumber(sides))
	}

	if sides > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %s sides exceeds the limit of %d", ErrTooComplex, formatNumber(sides), math.MaxInt32)
	}

	negative := numDice < 0
	count := math.Abs(numDice)
	if maxDice > 0 && math.Ceil(count) > float64(maxDice) {
		return nil, fmt.Errorf("%w: %s dice exceeds the limit of %d", ErrTooComplex, formatNumber(count), maxDice)
	}

	faces := int(math.Ceil(sides))
	whole := int(math.Floor(count))
	frac := count - math.Floor(count)

	values := make([]float64, 0, whole+1)
	for i := 0; i < whole; i++ {
		values = append(values, rollDie(faces, mode, src))
	}
	if frac != 0 {
		partial := int(math.Ceil(float64(faces) * frac))
		values = append(values, rollDie(partial, mode, src))
	}

	if negative {
		for i := range values {
			values[i] = -values[i]
		}
	}
	return values, nil
}

// rollDie produces one face value for a die with the given faces.
func rollDie(faces int, mode RollOption, src Source) float64 {
	if mode == Minimum {
		return 1
	}
	if faces <= 0 {
		return 0
	}
	switch mode {
	case Maximum:
		return float64(faces)
	default:
		return float64(src.Intn(faces) + 1)
	}
}
