// Package dice evaluates dice-notation expressions such as "4d6K3 + 2 ** (1d4)"
// into a numeric total plus an audit trail of every operation applied.
//
// Evaluation is one pass: the parser reduces each grammar production as soon
// as it is matched by calling the operator functions in operations.go, which
// thread a Result accumulator through the whole expression.
package dice

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// RollOption selects how dice produce their face values.
type RollOption int

const (
	// Normal rolls every die uniformly at random.
	Normal RollOption = iota
	// Minimum forces every die to its lowest face.
	Minimum
	// Maximum forces every die to its highest face.
	Maximum
)

// String returns the lower-case name of the option.
func (o RollOption) String() string {
	switch o {
	case Minimum:
		return "minimum"
	case Maximum:
		return "maximum"
	case Normal:
		return "normal"
	default:
		return fmt.Sprintf("RollOption(%d)", int(o))
	}
}

// ParseRollOption parses "min", "minimum", "normal", "max" or "maximum"
// (case-insensitive). The empty string parses as Normal.
//
// Postcondition: Returns a valid RollOption or a non-nil error.
func ParseRollOption(s string) (RollOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return Normal, nil
	case "min", "minimum":
		return Minimum, nil
	case "max", "maximum":
		return Maximum, nil
	}
	return Normal, fmt.Errorf("dice: unknown roll option %q", s)
}

// RollResults holds one group of same-sized dice and their face values.
//
// Invariant: Values is only re-ordered by the keep/drop methods, which sort
// it ascending before trimming.
type RollResults struct {
	Notation string    // e.g. "4d6", informational only
	Values   []float64 // individual face results
}

// Sum returns the sum of the remaining face values.
func (r *RollResults) Sum() float64 {
	total := 0.0
	for _, v := range r.Values {
		total += v
	}
	return total
}

// String returns the group as "<notation>: [v1, v2, ...]".
func (r *RollResults) String() string {
	return r.Notation + ": " + formatValues(r.Values)
}

// KeepLowest keeps the ceil(n) lowest values and returns the amount removed
// from the group's sum.
//
// Precondition: n >= 0; otherwise ErrInvalidOperand is returned.
// Postcondition: len(r.Values) == min(len before, ceil(n)).
func (r *RollResults) KeepLowest(n float64) (float64, error) {
	count, err := keepCount(n)
	if err != nil {
		return 0, err
	}
	return r.keep(count, false), nil
}

// KeepHighest keeps the ceil(n) highest values and returns the amount removed
// from the group's sum.
//
// Precondition: n >= 0; otherwise ErrInvalidOperand is returned.
// Postcondition: len(r.Values) == min(len before, ceil(n)).
func (r *RollResults) KeepHighest(n float64) (float64, error) {
	count, err := keepCount(n)
	if err != nil {
		return 0, err
	}
	return r.keep(count, true), nil
}

// DropLowest removes the ceil(n) lowest values. It is KeepHighest of the
// remaining len-ceil(n) values.
func (r *RollResults) DropLowest(n float64) (float64, error) {
	count, err := keepCount(n)
	if err != nil {
		return 0, err
	}
	return r.keep(max(len(r.Values)-count, 0), true), nil
}

// DropHighest removes the ceil(n) highest values. It is KeepLowest of the
// remaining len-ceil(n) values.
func (r *RollResults) DropHighest(n float64) (float64, error) {
	count, err := keepCount(n)
	if err != nil {
		return 0, err
	}
	return r.keep(max(len(r.Values)-count, 0), false), nil
}

func keepCount(n float64) (int, error) {
	c := math.Ceil(n)
	if math.IsNaN(c) || c < 0 {
		return 0, fmt.Errorf("%w: keep/drop count must not be negative, got %s", ErrInvalidOperand, formatNumber(n))
	}
	if c > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(c), nil
}

// keep sorts the values ascending and retains count of them from the low or
// high end, returning the sum of what was cut.
func (r *RollResults) keep(count int, highest bool) float64 {
	sort.Float64s(r.Values)
	if count >= len(r.Values) {
		return 0
	}

	var removed, kept []float64
	if highest {
		removed, kept = r.Values[:len(r.Values)-count], r.Values[len(r.Values)-count:]
	} else {
		kept, removed = r.Values[:count], r.Values[count:]
	}

	amount := 0.0
	for _, v := range removed {
		amount += v
	}
	r.Values = append([]float64(nil), kept...)
	return amount
}

// formatNumber renders a number the way history lines show it: integral
// values carry no decimal part.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatNumber is the exported form of the history number format, used by
// renderers outside this package.
func FormatNumber(f float64) string {
	return formatNumber(f)
}

func formatValues(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatNumber(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
