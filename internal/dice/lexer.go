package dice

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// diceLexer tokenizes dice expressions. Rules are tried in order; "d%" must
// precede the bare "d" rule.
var diceLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: ` +`},
	{Name: "Number", Pattern: `[0-9]+(?:\.[0-9]+)?`},
	{Name: "Sqrt", Pattern: `[sS][qQ][rR][tT]`},
	{Name: "Const", Pattern: `[pP][iI]|[eE]`},
	{Name: "Percent", Pattern: `[dD]%`},
	{Name: "Die", Pattern: `[dD]`},
	{Name: "Keep", Pattern: `[kKxX]`},
	{Name: "Operator", Pattern: `\*\*|//|<=|>=|[-+*/%^!<>=]`},
	{Name: "Paren", Pattern: `[()]`},
})

type tokenKind int

const (
	numberTok tokenKind = iota
	sqrtTok
	constTok
	percentTok
	dieTok
	keepTok
	opTok
	lparenTok
	rparenTok
)

func (k tokenKind) String() string {
	switch k {
	case numberTok:
		return "number"
	case sqrtTok:
		return "sqrt"
	case constTok:
		return "constant"
	case percentTok:
		return "d%"
	case dieTok:
		return "d"
	case keepTok:
		return "keep"
	case opTok:
		return "operator"
	case lparenTok:
		return "("
	case rparenTok:
		return ")"
	}
	return "unknown"
}

type token struct {
	kind  tokenKind
	value string
	// pos is the byte offset of the token in the input.
	pos int
}

var (
	symbols        = diceLexer.Symbols()
	whitespaceType = symbols["Whitespace"]
	kindByType     = map[lexer.TokenType]tokenKind{
		symbols["Number"]:   numberTok,
		symbols["Sqrt"]:     sqrtTok,
		symbols["Const"]:    constTok,
		symbols["Percent"]:  percentTok,
		symbols["Die"]:      dieTok,
		symbols["Keep"]:     keepTok,
		symbols["Operator"]: opTok,
	}
)

// lex splits input into tokens, dropping whitespace. Letters that carry no
// case meaning (d, pi, e, sqrt) are lower-cased; keep/drop letters are not.
func lex(input string) ([]token, error) {
	lx, err := diceLexer.LexString("", input)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to parse %q: %v", ErrSyntax, input, err)
	}

	var tokens []token
	for {
		t, err := lx.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: unable to parse %q: %v", ErrSyntax, input, err)
		}
		if t.EOF() {
			return tokens, nil
		}
		if t.Type == whitespaceType {
			continue
		}

		tok := token{value: t.Value, pos: t.Pos.Offset}
		if kind, ok := kindByType[t.Type]; ok {
			tok.kind = kind
		} else if t.Value == "(" {
			tok.kind = lparenTok
		} else {
			tok.kind = rparenTok
		}
		if tok.kind != keepTok {
			tok.value = strings.ToLower(tok.value)
		}
		tokens = append(tokens, tok)
	}
}
