package dice

import "errors"

// Error kinds returned by evaluation. Every error produced by this package
// wraps exactly one of these; callers classify with errors.Is.
var (
	// ErrSyntax reports input that does not match the dice grammar.
	ErrSyntax = errors.New("dice: syntax error")
	// ErrInvalidCharacters reports input rejected before parsing.
	ErrInvalidCharacters = errors.New("dice: input contained invalid characters")
	// ErrInvalidOperand reports a semantically invalid operation on
	// well-formed input, e.g. negative die sides or sqrt of a negative.
	ErrInvalidOperand = errors.New("dice: invalid operand")
	// ErrDivisionByZero reports a division, floor division, or modulus by zero.
	ErrDivisionByZero = errors.New("dice: division by zero")
	// ErrType reports a keep/drop modifier applied to a non-dice operand.
	ErrType = errors.New("dice: type error")
	// ErrTooComplex reports input exceeding the configured evaluation limits.
	ErrTooComplex = errors.New("dice: expression too complex")
	// ErrInternal reports a violated evaluator invariant.
	ErrInternal = errors.New("dice: internal error")
)
