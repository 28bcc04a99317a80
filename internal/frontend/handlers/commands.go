package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roll/internal/dice"
	"github.com/cory-johannsen/roll/internal/frontend/telnet"
)

// commandFunc handles one session command. quit ends the session cleanly; a
// non-nil error ends it abnormally. Usage mistakes are reported to the client
// and return (false, nil).
type commandFunc func(ctx context.Context, h *DiceHandler, s *session, args []string) (quit bool, err error)

// commandHelp is the single source of truth for the help listing.
var commandHelp = map[string]string{
	"verbose": "verbose on|off         show the full roll history",
	"mode":    "mode min|normal|max    force dice to their lowest or highest face",
	"color":   "color on|off           toggle ANSI colors",
	"macros":  "macros                 list loaded macros",
	"macro":   "macro <name> [args]    run a loaded macro",
	"help":    "help                   show this help",
	"quit":    "quit                   disconnect",
}

// commands maps the first word of an input line to its handler. Lines whose
// first word is not listed here are evaluated as expressions.
var commands = map[string]commandFunc{
	"verbose": cmdVerbose,
	"mode":    cmdMode,
	"color":   cmdColor,
	"macros":  cmdMacros,
	"macro":   cmdMacro,
	"help":    cmdHelp,
	"quit":    cmdQuit,
	"exit":    cmdQuit,
}

func usage(s *session, name string) (bool, error) {
	return false, s.conn.WriteLine(telnet.Paint(s.palette.Error, "usage: "+commandHelp[name]))
}

func info(s *session, format string, args ...any) (bool, error) {
	return false, s.conn.WriteLine(telnet.Paint(s.palette.Info, fmt.Sprintf(format, args...)))
}

func parseSwitch(args []string) (on bool, ok bool) {
	if len(args) != 1 {
		return false, false
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "yes":
		return true, true
	case "off", "false", "no":
		return false, true
	}
	return false, false
}

func cmdVerbose(_ context.Context, _ *DiceHandler, s *session, args []string) (bool, error) {
	on, ok := parseSwitch(args)
	if !ok {
		return usage(s, "verbose")
	}
	s.verbose = on
	s.logger.Debug("session verbose changed", zap.Bool("verbose", on))
	return info(s, "verbose %s", onOff(on))
}

func cmdMode(_ context.Context, _ *DiceHandler, s *session, args []string) (bool, error) {
	if len(args) != 1 {
		return usage(s, "mode")
	}
	mode, err := dice.ParseRollOption(args[0])
	if err != nil {
		return usage(s, "mode")
	}
	s.mode = mode
	s.logger.Debug("session mode changed", zap.Stringer("mode", mode))
	return info(s, "mode %s", mode)
}

func cmdColor(_ context.Context, _ *DiceHandler, s *session, args []string) (bool, error) {
	on, ok := parseSwitch(args)
	if !ok {
		return usage(s, "color")
	}
	if on {
		s.palette = telnet.ColorPalette
	} else {
		s.palette = telnet.PlainPalette
	}
	return info(s, "color %s", onOff(on))
}

func cmdMacros(_ context.Context, h *DiceHandler, s *session, _ []string) (bool, error) {
	if h.macros == nil {
		return info(s, "macros are not enabled on this server")
	}
	names := h.macros.Macros()
	if len(names) == 0 {
		return info(s, "no macros loaded")
	}
	return info(s, "macros: %s", strings.Join(names, ", "))
}

func cmdMacro(ctx context.Context, h *DiceHandler, s *session, args []string) (bool, error) {
	if len(args) == 0 {
		return usage(s, "macro")
	}
	if h.macros == nil {
		return info(s, "macros are not enabled on this server")
	}

	var printed strings.Builder
	ret, err := h.macros.CallMacro(ctx, args[0], args[1:], &printed)
	if out := strings.TrimRight(printed.String(), "\n"); out != "" {
		if werr := s.conn.WriteLine(out); werr != nil {
			return false, werr
		}
	}
	if err != nil {
		return false, s.conn.WriteLine(RenderError(err, s.palette))
	}
	if ret != "" {
		return false, s.conn.WriteLine(telnet.Paint(s.palette.Total, ret))
	}
	return false, nil
}

func cmdHelp(_ context.Context, _ *DiceHandler, s *session, _ []string) (bool, error) {
	names := make([]string, 0, len(commandHelp))
	for name := range commandHelp {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(telnet.Paint(s.palette.Info, "Commands:"))
	for _, name := range names {
		b.WriteString("\r\n  ")
		b.WriteString(commandHelp[name])
	}
	b.WriteString("\r\n")
	b.WriteString(telnet.Paint(s.palette.Info, "Anything else is rolled, e.g. 3d6, 4d6K3, 2d20k1 + 5, 1d%, sqrt(16) * 2d4."))
	return false, s.conn.WriteLine(b.String())
}

func cmdQuit(_ context.Context, _ *DiceHandler, s *session, _ []string) (bool, error) {
	_ = s.conn.WriteLine(telnet.Paint(s.palette.Info, "Goodbye!"))
	return true, nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
