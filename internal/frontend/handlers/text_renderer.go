package handlers

import (
	"errors"
	"strings"

	"github.com/cory-johannsen/roll/internal/dice"
	"github.com/cory-johannsen/roll/internal/frontend/telnet"
	"github.com/cory-johannsen/roll/internal/scripting"
)

// RenderResult formats an evaluation for the line server. The bare total is
// written unless verbose is set, in which case every history line precedes it.
func RenderResult(res *dice.Result, verbose bool, p telnet.Palette) string {
	total := telnet.Paint(p.Total, dice.FormatNumber(res.Total))
	if !verbose || len(res.History) == 0 {
		return total
	}

	var b strings.Builder
	for _, line := range res.History {
		b.WriteString(telnet.Paint(p.History, line))
		b.WriteString("\r\n")
	}
	b.WriteString(total)
	return b.String()
}

// RenderError formats an evaluation or macro failure. Errors the user can fix
// are shown in full; anything else collapses to a generic message so internal
// detail does not leak to clients.
func RenderError(err error, p telnet.Palette) string {
	return telnet.Paint(p.Error, "error: "+userMessage(err))
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, dice.ErrInternal):
		return "internal error evaluating expression"
	case errors.Is(err, dice.ErrSyntax),
		errors.Is(err, dice.ErrInvalidCharacters),
		errors.Is(err, dice.ErrInvalidOperand),
		errors.Is(err, dice.ErrDivisionByZero),
		errors.Is(err, dice.ErrType),
		errors.Is(err, dice.ErrTooComplex),
		errors.Is(err, scripting.ErrUnknownMacro),
		errors.Is(err, scripting.ErrScript),
		errors.Is(err, telnet.ErrLineTooLong):
		return err.Error()
	}
	return "command failed"
}
