package dice

import (
	"fmt"
	"math"
	"strings"
)

// maxFactorial is the largest operand whose factorial fits in a float64.
const maxFactorial = 170

// Result is the accumulator threaded through an evaluation. It holds the
// running total, every roll group contributed so far, and one history line
// per operation applied.
//
// Invariant: Total reflects every operation recorded in History.
type Result struct {
	Total   float64
	Rolls   []*RollResults
	History []string
}

// NewResult returns a Result with the given total and no rolls or history.
func NewResult(total float64) *Result {
	return &Result{Total: total}
}

// AddRoll appends a roll group, adds its sum to the total, and records a
// "Rolled:" history line.
//
// Precondition: rr must be non-nil and not owned by another Result.
func (r *Result) AddRoll(rr *RollResults) {
	r.Total += rr.Sum()
	r.Rolls = append(r.Rolls, rr)
	r.History = append(r.History, "Rolled: "+rr.String())
}

// LastRoll returns the most recently merged roll group, or nil when the
// Result contains no dice.
func (r *Result) LastRoll() *RollResults {
	if len(r.Rolls) == 0 {
		return nil
	}
	return r.Rolls[len(r.Rolls)-1]
}

// String returns the history lines followed by the total on its own line.
func (r *Result) String() string {
	var b strings.Builder
	for _, h := range r.History {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	b.WriteString(formatNumber(r.Total))
	return b.String()
}

// absorb moves other's rolls and history into r and consumes other.
// The right-hand rolls come first so the receiver's own rolls stay last;
// histories are concatenated receiver-then-other.
func (r *Result) absorb(other *Result) {
	if other == nil || other == r {
		return
	}
	rolls := make([]*RollResults, 0, len(other.Rolls)+len(r.Rolls))
	rolls = append(rolls, other.Rolls...)
	rolls = append(rolls, r.Rolls...)
	r.Rolls = rolls
	r.History = append(r.History, other.History...)
	other.Rolls = nil
	other.History = nil
}

type binaryOp struct {
	symbol string
	verb   string
	fn     func(a, b float64) (float64, error)
}

var (
	opAdd = binaryOp{"+", "Adding", func(a, b float64) (float64, error) { return a + b, nil }}
	opSub = binaryOp{"-", "Subtracting", func(a, b float64) (float64, error) { return a - b, nil }}
	opMul = binaryOp{"*", "Multiplying", func(a, b float64) (float64, error) { return a * b, nil }}
	opDiv = binaryOp{"/", "Dividing", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("%w: %s / 0", ErrDivisionByZero, formatNumber(a))
		}
		return a / b, nil
	}}
	opFloorDiv = binaryOp{"//", "Floor dividing", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("%w: %s // 0", ErrDivisionByZero, formatNumber(a))
		}
		return math.Floor(a / b), nil
	}}
	opMod = binaryOp{"%", "Modulus dividing", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("%w: %s %% 0", ErrDivisionByZero, formatNumber(a))
		}
		// The result takes the sign of the divisor.
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m, nil
	}}
	opPow = binaryOp{"**", "Exponentiating", power}

	opLess         = comparison("<", func(a, b float64) bool { return a < b })
	opGreater      = comparison(">", func(a, b float64) bool { return a > b })
	opLessEqual    = comparison("<=", func(a, b float64) bool { return a <= b })
	opGreaterEqual = comparison(">=", func(a, b float64) bool { return a >= b })
	opEqual        = comparison("=", func(a, b float64) bool { return a == b })
)

func power(a, b float64) (float64, error) {
	if a == 0 && b < 0 {
		return 0, fmt.Errorf("%w: 0 raised to a negative power", ErrDivisionByZero)
	}
	v := math.Pow(a, b)
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %s ** %s has no real result", ErrInvalidOperand, formatNumber(a), formatNumber(b))
	}
	if math.IsInf(v, 0) && !math.IsInf(a, 0) && !math.IsInf(b, 0) {
		return 0, fmt.Errorf("%w: %s ** %s overflows", ErrTooComplex, formatNumber(a), formatNumber(b))
	}
	return v, nil
}

// checkFinite rejects a non-finite total produced from finite operands.
func checkFinite(total, a float64, symbol string, b float64) error {
	if math.IsInf(a, 0) || math.IsNaN(a) || math.IsInf(b, 0) || math.IsNaN(b) {
		return nil
	}
	switch {
	case math.IsNaN(total):
		return fmt.Errorf("%w: %s %s %s has no real result", ErrInvalidOperand, formatNumber(a), symbol, formatNumber(b))
	case math.IsInf(total, 0):
		return fmt.Errorf("%w: %s %s %s overflows", ErrTooComplex, formatNumber(a), symbol, formatNumber(b))
	}
	return nil
}

func comparison(symbol string, cmp func(a, b float64) bool) binaryOp {
	return binaryOp{symbol, "Comparing", func(a, b float64) (float64, error) {
		if cmp(a, b) {
			return 1, nil
		}
		return 0, nil
	}}
}

// apply merges other into r, combines the totals with op, and records the
// history line "<Verb>: <prev> <op> <other> = <new>".
func (r *Result) apply(op binaryOp, other Value) error {
	rhs := other.Number()
	prev := r.Total
	total, err := op.fn(prev, rhs)
	if err != nil {
		return err
	}
	if err := checkFinite(total, prev, op.symbol, rhs); err != nil {
		return err
	}
	if other.res != nil {
		r.absorb(other.res)
	}
	r.Total = total
	r.History = append(r.History, fmt.Sprintf("%s: %s %s %s = %s",
		op.verb, formatNumber(prev), op.symbol, formatNumber(rhs), formatNumber(total)))
	return nil
}

// factorial replaces the total with ceil(total)!.
func (r *Result) factorial() error {
	n := math.Ceil(r.Total)
	if n < 0 || math.IsNaN(n) {
		return fmt.Errorf("%w: factorial of negative value %s", ErrInvalidOperand, formatNumber(r.Total))
	}
	if n > maxFactorial {
		return fmt.Errorf("%w: factorial of %s exceeds %d!", ErrTooComplex, formatNumber(n), maxFactorial)
	}
	v := 1.0
	for i := 2.0; i <= n; i++ {
		v *= i
	}
	r.History = append(r.History, fmt.Sprintf("Factorial: %s! = %s", formatNumber(r.Total), formatNumber(v)))
	r.Total = v
	return nil
}

// sqrt replaces the total with its square root.
func (r *Result) sqrt() error {
	if r.Total < 0 {
		return fmt.Errorf("%w: square root of negative value %s", ErrInvalidOperand, formatNumber(r.Total))
	}
	v := math.Sqrt(r.Total)
	r.History = append(r.History, fmt.Sprintf("Square Root: %s: %s", formatNumber(r.Total), formatNumber(v)))
	r.Total = v
	return nil
}

// negate flips the sign of the total.
func (r *Result) negate() {
	prev := r.Total
	r.Total = -prev
	r.History = append(r.History, fmt.Sprintf("Negating: %s = %s", formatNumber(prev), formatNumber(r.Total)))
}
