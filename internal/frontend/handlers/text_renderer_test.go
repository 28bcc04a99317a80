package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/roll/internal/dice"
	"github.com/cory-johannsen/roll/internal/frontend/telnet"
	"github.com/cory-johannsen/roll/internal/scripting"
)

func TestRenderResult_Plain(t *testing.T) {
	res := dice.NewResult(7.5)
	res.History = []string{"Rolled: 1d6: [5]", "Adding: 2.5"}

	assert.Equal(t, "7.5", RenderResult(res, false, telnet.PlainPalette))
	assert.Equal(t, "Rolled: 1d6: [5]\r\nAdding: 2.5\r\n7.5", RenderResult(res, true, telnet.PlainPalette))
}

func TestRenderResult_VerboseWithoutHistory(t *testing.T) {
	assert.Equal(t, "4", RenderResult(dice.NewResult(4), true, telnet.PlainPalette))
}

func TestRenderResult_ColorStripsToPlain(t *testing.T) {
	res := dice.NewResult(12)
	res.History = []string{"Rolled: 2d6: [6, 6]"}
	colored := RenderResult(res, true, telnet.ColorPalette)

	assert.NotEqual(t, colored, telnet.StripANSI(colored))
	assert.Equal(t, RenderResult(res, true, telnet.PlainPalette), telnet.StripANSI(colored))
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"syntax", fmt.Errorf("%w: unable to parse %q", dice.ErrSyntax, "2 +"), `error: dice: syntax error: unable to parse "2 +"`},
		{"division", dice.ErrDivisionByZero, "error: dice: division by zero"},
		{"too complex", fmt.Errorf("%w: too many dice", dice.ErrTooComplex), "error: dice: expression too complex: too many dice"},
		{"unknown macro", fmt.Errorf("%w: %q", scripting.ErrUnknownMacro, "x"), `error: scripting: unknown macro: "x"`},
		{"internal hidden", fmt.Errorf("%w: stack underflow", dice.ErrInternal), "error: internal error evaluating expression"},
		{"unclassified hidden", errors.New("socket exploded"), "error: command failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RenderError(tc.err, telnet.PlainPalette))
			assert.Equal(t, tc.want, telnet.StripANSI(RenderError(tc.err, telnet.ColorPalette)))
		})
	}
}

// Property: non-verbose rendering of any total is its history-format number.
func TestPropertyRenderResult_TotalMatchesFormatNumber(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.Float64Range(-1e6, 1e6).Draw(t, "total")
		res := dice.NewResult(total)
		assert.Equal(t, dice.FormatNumber(total), RenderResult(res, false, telnet.PlainPalette))
	})
}
