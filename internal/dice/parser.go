package dice

import (
	"fmt"
	"math"
	"strconv"
)

// Recursive descent with reduction on match: every production calls the
// operator functions as soon as its operands are known, so parsing an
// expression and evaluating it are the same walk.
//
// Precedence, loosest first:
//
//	comparison     → additive ( ( "<" | ">" | "<=" | ">=" | "=" ) additive )*
//	additive       → multiplicative ( ( "+" | "-" ) multiplicative )*
//	multiplicative → keep ( ( "*" | "/" | "//" | "%" ) keep )*
//	keep           → dice ( ( "k" | "K" | "x" | "X" ) dice? )*
//	dice           → "d" dice | percent ( "d" dice )?
//	percent        → factorial "d%"*
//	factorial      → negation "!"*
//	negation       → "-" negation | power
//	power          → root ( ( "^" | "**" ) power )?
//	root           → "sqrt" root | unary
//	unary          → "-" unary | primary
//	primary        → NUMBER | "pi" | "e" | "d%" | "(" comparison ")"

// evalContext carries the settings of one Evaluate call into the reductions.
type evalContext struct {
	mode     RollOption
	src      Source
	maxDice  int
	maxDepth int
}

type parser struct {
	input   string
	tokens  []token
	current int
	depth   int
	ctx     *evalContext
}

type binaryFunc func(x, y Value) (Value, error)

var (
	comparisonOps = map[string]binaryFunc{
		"<": Less, ">": Greater, "<=": LessEqual, ">=": GreaterEqual, "=": Equal,
	}
	additiveOps = map[string]binaryFunc{
		"+": Add, "-": Sub,
	}
	multiplicativeOps = map[string]binaryFunc{
		"*": Mul, "/": Div, "//": FloorDiv, "%": Mod,
	}
	keepOps = map[string]binaryFunc{
		"k": KeepLowest, "K": KeepHighest, "x": DropLowest, "X": DropHighest,
	}
)

func newParser(input string, tokens []token, ctx *evalContext) *parser {
	return &parser{input: input, tokens: tokens, ctx: ctx}
}

// parse reduces the whole token stream to a single value.
func (p *parser) parse() (Value, error) {
	if p.atEnd() {
		return Value{}, p.errorf("empty expression")
	}
	v, err := p.comparison()
	if err != nil {
		return Value{}, err
	}
	if !p.atEnd() {
		return Value{}, p.unexpected()
	}
	return v, nil
}

// leftAssoc parses operand ( op operand )* for the operators in ops.
func (p *parser) leftAssoc(operand func() (Value, error), ops map[string]binaryFunc) (Value, error) {
	left, err := operand()
	if err != nil {
		return Value{}, err
	}
	for p.check(opTok) {
		fn, ok := ops[p.peek().value]
		if !ok {
			break
		}
		p.advance()
		right, err := operand()
		if err != nil {
			return Value{}, err
		}
		if left, err = fn(left, right); err != nil {
			return Value{}, err
		}
	}
	return left, nil
}

func (p *parser) comparison() (Value, error) {
	return p.leftAssoc(p.additive, comparisonOps)
}

func (p *parser) additive() (Value, error) {
	return p.leftAssoc(p.multiplicative, additiveOps)
}

func (p *parser) multiplicative() (Value, error) {
	return p.leftAssoc(p.keep, multiplicativeOps)
}

func (p *parser) keep() (Value, error) {
	left, err := p.dice()
	if err != nil {
		return Value{}, err
	}
	for p.match(keepTok) {
		fn := keepOps[p.previous().value]
		count := NumberValue(1)
		if p.startsOperand() {
			if count, err = p.dice(); err != nil {
				return Value{}, err
			}
		}
		if left, err = fn(left, count); err != nil {
			return Value{}, err
		}
	}
	return left, nil
}

// startsOperand reports whether the next token can begin a keep/drop count.
// A leading "-" is read as subtraction, so "4d6K - 2" keeps one die.
func (p *parser) startsOperand() bool {
	switch {
	case p.check(numberTok), p.check(constTok), p.check(sqrtTok),
		p.check(dieTok), p.check(percentTok), p.check(lparenTok):
		return true
	}
	return false
}

func (p *parser) dice() (Value, error) {
	if p.match(dieTok) {
		sides, err := p.nested(p.dice)
		if err != nil {
			return Value{}, err
		}
		return p.roll(NumberValue(1), sides)
	}

	count, err := p.percent()
	if err != nil {
		return Value{}, err
	}
	if !p.match(dieTok) {
		return count, nil
	}
	sides, err := p.nested(p.dice)
	if err != nil {
		return Value{}, err
	}
	return p.roll(count, sides)
}

func (p *parser) percent() (Value, error) {
	v, err := p.factorial()
	if err != nil {
		return Value{}, err
	}
	for p.match(percentTok) {
		if v, err = p.roll(v, NumberValue(100)); err != nil {
			return Value{}, err
		}
	}
	return v, nil
}

func (p *parser) factorial() (Value, error) {
	v, err := p.negation()
	if err != nil {
		return Value{}, err
	}
	for p.matchOp("!") {
		if v, err = Factorial(v); err != nil {
			return Value{}, err
		}
	}
	return v, nil
}

func (p *parser) negation() (Value, error) {
	if p.matchOp("-") {
		v, err := p.nested(p.negation)
		if err != nil {
			return Value{}, err
		}
		return Negate(v), nil
	}
	return p.power()
}

func (p *parser) power() (Value, error) {
	base, err := p.root()
	if err != nil {
		return Value{}, err
	}
	if !p.matchOp("^", "**") {
		return base, nil
	}
	exponent, err := p.nested(p.power)
	if err != nil {
		return Value{}, err
	}
	return Pow(base, exponent)
}

func (p *parser) root() (Value, error) {
	if p.match(sqrtTok) {
		v, err := p.nested(p.root)
		if err != nil {
			return Value{}, err
		}
		return Sqrt(v)
	}
	return p.unary()
}

func (p *parser) unary() (Value, error) {
	if p.matchOp("-") {
		v, err := p.nested(p.unary)
		if err != nil {
			return Value{}, err
		}
		return Negate(v), nil
	}
	return p.primary()
}

func (p *parser) primary() (Value, error) {
	switch {
	case p.match(numberTok):
		f, err := strconv.ParseFloat(p.previous().value, 64)
		if err != nil {
			return Value{}, p.errorf("bad number %q", p.previous().value)
		}
		return NumberValue(f), nil
	case p.match(constTok):
		if p.previous().value == "pi" {
			return NumberValue(math.Pi), nil
		}
		return NumberValue(math.E), nil
	case p.match(percentTok):
		return p.roll(NumberValue(1), NumberValue(100))
	case p.match(lparenTok):
		v, err := p.nested(p.comparison)
		if err != nil {
			return Value{}, err
		}
		if !p.match(rparenTok) {
			if p.atEnd() {
				return Value{}, p.errorf("missing closing ')'")
			}
			return Value{}, p.unexpected()
		}
		return v, nil
	}
	return Value{}, p.unexpected()
}

func (p *parser) roll(count, sides Value) (Value, error) {
	return Roll(count, sides, p.ctx.mode, p.ctx.src, p.ctx.maxDice)
}

// nested runs fn one level deeper, failing once the configured depth is
// exceeded.
func (p *parser) nested(fn func() (Value, error)) (Value, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.ctx.maxDepth > 0 && p.depth > p.ctx.maxDepth {
		return Value{}, fmt.Errorf("%w: nesting deeper than %d levels", ErrTooComplex, p.ctx.maxDepth)
	}
	return fn()
}

// helpers

func (p *parser) atEnd() bool {
	return p.current >= len(p.tokens)
}

func (p *parser) peek() token {
	return p.tokens[p.current]
}

func (p *parser) previous() token {
	return p.tokens[p.current-1]
}

func (p *parser) advance() token {
	if !p.atEnd() {
		p.current++
	}
	return p.previous()
}

func (p *parser) check(kind tokenKind) bool {
	return !p.atEnd() && p.peek().kind == kind
}

func (p *parser) match(kind tokenKind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) matchOp(values ...string) bool {
	if !p.check(opTok) {
		return false
	}
	for _, v := range values {
		if p.peek().value == v {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) unexpected() error {
	if p.atEnd() {
		return p.errorf("unexpected end of input")
	}
	t := p.peek()
	return p.errorf("unexpected %q at offset %d", t.value, t.pos)
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: unable to parse %q: %s", ErrSyntax, p.input, fmt.Sprintf(format, args...))
}
