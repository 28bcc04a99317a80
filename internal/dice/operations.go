package dice

import "fmt"

// Value is an operand flowing between reductions: either a bare number or an
// accumulated Result. The zero Value is the number 0.
type Value struct {
	num float64
	res *Result
}

// NumberValue wraps a bare number.
func NumberValue(f float64) Value {
	return Value{num: f}
}

// ResultValue wraps an accumulator.
//
// Precondition: r must be non-nil.
func ResultValue(r *Result) Value {
	return Value{res: r}
}

// IsResult reports whether v carries an accumulator.
func (v Value) IsResult() bool {
	return v.res != nil
}

// Number returns v's numeric value: the bare number or the accumulator total.
func (v Value) Number() float64 {
	if v.res != nil {
		return v.res.Total
	}
	return v.num
}

// Result returns v as an accumulator, promoting a bare number into a fresh
// Result with no rolls or history.
func (v Value) Result() *Result {
	if v.res != nil {
		return v.res
	}
	return NewResult(v.num)
}

func binary(op binaryOp, x, y Value) (Value, error) {
	r := x.Result()
	if err := r.apply(op, y); err != nil {
		return Value{}, err
	}
	return ResultValue(r), nil
}

// Add returns x + y.
func Add(x, y Value) (Value, error) { return binary(opAdd, x, y) }

// Sub returns x - y.
func Sub(x, y Value) (Value, error) { return binary(opSub, x, y) }

// Mul returns x * y.
func Mul(x, y Value) (Value, error) { return binary(opMul, x, y) }

// Div returns x / y; a zero divisor fails with ErrDivisionByZero.
func Div(x, y Value) (Value, error) { return binary(opDiv, x, y) }

// FloorDiv returns floor(x / y); a zero divisor fails with ErrDivisionByZero.
func FloorDiv(x, y Value) (Value, error) { return binary(opFloorDiv, x, y) }

// Mod returns x modulo y with the sign of y; a zero divisor fails with
// ErrDivisionByZero.
func Mod(x, y Value) (Value, error) { return binary(opMod, x, y) }

// Pow returns x raised to y.
func Pow(x, y Value) (Value, error) { return binary(opPow, x, y) }

// Less returns 1 when x < y, else 0.
func Less(x, y Value) (Value, error) { return binary(opLess, x, y) }

// Greater returns 1 when x > y, else 0.
func Greater(x, y Value) (Value, error) { return binary(opGreater, x, y) }

// LessEqual returns 1 when x <= y, else 0.
func LessEqual(x, y Value) (Value, error) { return binary(opLessEqual, x, y) }

// GreaterEqual returns 1 when x >= y, else 0.
func GreaterEqual(x, y Value) (Value, error) { return binary(opGreaterEqual, x, y) }

// Equal returns 1 when x == y, else 0.
func Equal(x, y Value) (Value, error) { return binary(opEqual, x, y) }

// Factorial returns ceil(x)!.
func Factorial(x Value) (Value, error) {
	r := x.Result()
	if err := r.factorial(); err != nil {
		return Value{}, err
	}
	return ResultValue(r), nil
}

// Sqrt returns the square root of x.
func Sqrt(x Value) (Value, error) {
	r := x.Result()
	if err := r.sqrt(); err != nil {
		return Value{}, err
	}
	return ResultValue(r), nil
}

// Negate returns -x. A bare number stays a bare number.
func Negate(x Value) Value {
	if x.res == nil {
		return NumberValue(-x.num)
	}
	x.res.negate()
	return x
}

// Roll rolls count dice with the given sides. Accumulator operands are merged
// into the new Result first so their rolls and history are kept, but their
// totals only decide the count and sides.
//
// Postcondition: the returned Result's last roll group is the new roll.
func Roll(count, sides Value, mode RollOption, src Source, maxDice int) (Value, error) {
	n, s := count.Number(), sides.Number()

	values, err := RollDice(n, s, mode, src, maxDice)
	if err != nil {
		return Value{}, err
	}

	result := NewResult(0)
	for _, operand := range []Value{count, sides} {
		if !operand.IsResult() {
			continue
		}
		if err := result.apply(opAdd, operand); err != nil {
			return Value{}, err
		}
	}
	result.Total = 0
	result.AddRoll(&RollResults{
		Notation: formatNumber(n) + "d" + formatNumber(s),
		Values:   values,
	})
	return ResultValue(result), nil
}

type trimFunc func(r *RollResults, n float64) (float64, error)

// KeepLowest keeps the n lowest values of x's most recent roll group.
func KeepLowest(x, n Value) (Value, error) {
	return keepDrop(x, n, "Keeping lowest", (*RollResults).KeepLowest)
}

// KeepHighest keeps the n highest values of x's most recent roll group.
func KeepHighest(x, n Value) (Value, error) {
	return keepDrop(x, n, "Keeping highest", (*RollResults).KeepHighest)
}

// DropLowest drops the n lowest values of x's most recent roll group.
func DropLowest(x, n Value) (Value, error) {
	return keepDrop(x, n, "Dropping lowest", (*RollResults).DropLowest)
}

// DropHighest drops the n highest values of x's most recent roll group.
func DropHighest(x, n Value) (Value, error) {
	return keepDrop(x, n, "Dropping highest", (*RollResults).DropHighest)
}

// keepDrop trims the last roll group of x and lowers the total by exactly the
// amount removed, so chained modifiers compose without re-summing.
func keepDrop(x, n Value, label string, trim trimFunc) (Value, error) {
	if x.res == nil || x.res.LastRoll() == nil {
		return Value{}, fmt.Errorf("%w: left value must contain a dice roll", ErrType)
	}
	result := x.res

	amount := n.Number()
	if n.IsResult() {
		if err := result.apply(opAdd, n); err != nil {
			return Value{}, err
		}
		result.Total -= amount
	}

	last := result.LastRoll()
	removed, err := trim(last, amount)
	if err != nil {
		return Value{}, err
	}
	result.Total -= removed
	result.History = append(result.History, fmt.Sprintf("%s: %s: %s", label, formatNumber(amount), formatValues(last.Values)))
	return ResultValue(result), nil
}
