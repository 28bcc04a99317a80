package dice

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// allowedCharacters is the complete set of characters an expression may use.
const allowedCharacters = "0123456789dD-/*()%+.!^pPiIeEsSqQrRtTkKxX<>= "

// DefaultExpression is evaluated when the input is empty or only spaces.
const DefaultExpression = "1d20"

// Limits bounds the work a single evaluation may do. A zero field disables
// that bound.
type Limits struct {
	// MaxDice is the largest number of dice a single roll may produce.
	MaxDice int
	// MaxDepth is the deepest nesting of parentheses and prefix operators.
	MaxDepth int
	// MaxInputLength is the longest accepted expression in bytes.
	MaxInputLength int
}

// DefaultLimits are the limits used when none are configured.
var DefaultLimits = Limits{
	MaxDice:        10000,
	MaxDepth:       64,
	MaxInputLength: 1024,
}

// Evaluator evaluates dice expressions against a Source under fixed limits.
// It holds no per-evaluation state and is safe for concurrent use when its
// Source is.
type Evaluator struct {
	src               Source
	limits            Limits
	defaultExpression string
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLimits replaces DefaultLimits.
func WithLimits(l Limits) Option {
	return func(e *Evaluator) { e.limits = l }
}

// WithDefaultExpression replaces DefaultExpression for empty input.
func WithDefaultExpression(expr string) Option {
	return func(e *Evaluator) {
		if strings.TrimSpace(expr) != "" {
			e.defaultExpression = expr
		}
	}
}

// NewEvaluator returns an Evaluator rolling with src.
//
// Precondition: src must be non-nil.
func NewEvaluator(src Source, opts ...Option) *Evaluator {
	e := &Evaluator{
		src:               src,
		limits:            DefaultLimits,
		defaultExpression: DefaultExpression,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limits returns the limits e enforces.
func (e *Evaluator) Limits() Limits {
	return e.limits
}

// Evaluate parses and evaluates expression with every die rolling under mode,
// returning the full accumulator.
//
// Postcondition: exactly one of the returned values is non-nil. A bare
// numeric expression yields a Result with no rolls or history.
func (e *Evaluator) Evaluate(expression string, mode RollOption) (res *Result, err error) {
	if strings.TrimSpace(expression) == "" {
		expression = e.defaultExpression
	}
	if err := e.Validate(expression); err != nil {
		return nil, err
	}

	tokens, err := lex(expression)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%w: evaluating %q: %v", ErrInternal, expression, r)
		}
	}()

	ctx := &evalContext{
		mode:     mode,
		src:      e.src,
		maxDice:  e.limits.MaxDice,
		maxDepth: e.limits.MaxDepth,
	}
	v, err := newParser(expression, tokens, ctx).parse()
	if err != nil {
		return nil, err
	}
	return v.Result(), nil
}

// Total evaluates expression and returns only the numeric total.
func (e *Evaluator) Total(expression string, mode RollOption) (float64, error) {
	res, err := e.Evaluate(expression, mode)
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// Validate checks expression against the input length limit and the allowed
// character set without evaluating it.
func (e *Evaluator) Validate(expression string) error {
	if limit := e.limits.MaxInputLength; limit > 0 && len(expression) > limit {
		return fmt.Errorf("%w: input is %d bytes, limit is %d", ErrTooComplex, len(expression), limit)
	}
	return Validate(expression)
}

// Validate reports ErrInvalidCharacters when expression contains anything
// outside the dice notation alphabet.
func Validate(expression string) error {
	if i := strings.IndexFunc(expression, func(r rune) bool {
		return !strings.ContainsRune(allowedCharacters, r)
	}); i >= 0 {
		r, _ := utf8.DecodeRuneInString(expression[i:])
		return fmt.Errorf("%w: %q at offset %d", ErrInvalidCharacters, r, i)
	}
	return nil
}

var defaultEvaluator = NewEvaluator(NewCryptoSource())

// Evaluate evaluates expression with a crypto-backed Source and
// DefaultLimits.
func Evaluate(expression string, mode RollOption) (*Result, error) {
	return defaultEvaluator.Evaluate(expression, mode)
}

// Total evaluates expression with a crypto-backed Source and DefaultLimits,
// returning only the numeric total.
func Total(expression string, mode RollOption) (float64, error) {
	return defaultEvaluator.Total(expression, mode)
}
