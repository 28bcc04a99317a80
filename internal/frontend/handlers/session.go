// Package handlers provides the Telnet session loop of the dice line server.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roll/internal/dice"
	"github.com/cory-johannsen/roll/internal/frontend/telnet"
	"github.com/cory-johannsen/roll/internal/scripting"
)

const welcomeBanner = telnet.Bold + telnet.Cyan + "roll" + telnet.Reset + ` dice server

  Type an expression such as ` + telnet.Green + `4d6K3 + 2` + telnet.Reset + ` to roll it.
  Type ` + telnet.Green + `help` + telnet.Reset + ` for commands, ` + telnet.Green + `quit` + telnet.Reset + ` to disconnect.
`

const prompt = "roll> "

// DiceHandler implements telnet.SessionHandler. Each input line is either a
// session command or an expression, which is evaluated and answered with its
// total or, in verbose mode, its full history.
type DiceHandler struct {
	eval   *dice.LoggedEvaluator
	macros *scripting.Manager
	logger *zap.Logger
}

// NewDiceHandler creates a DiceHandler.
//
// Precondition: eval and logger must be non-nil. macros may be nil, which
// disables the macro commands.
// Postcondition: Returns a DiceHandler ready to handle sessions.
func NewDiceHandler(eval *dice.LoggedEvaluator, macros *scripting.Manager, logger *zap.Logger) *DiceHandler {
	return &DiceHandler{eval: eval, macros: macros, logger: logger}
}

// session is the per-connection state changed by commands.
type session struct {
	conn    *telnet.Conn
	logger  *zap.Logger
	verbose bool
	mode    dice.RollOption
	palette telnet.Palette
}

// HandleSession implements telnet.SessionHandler.
//
// Postcondition: Returns nil on clean quit, ctx.Err() on server shutdown, or
// the read/write error that ended the session.
func (h *DiceHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	s := &session{
		conn:    conn,
		logger:  h.logger.With(zap.String("session_id", conn.ID())),
		mode:    dice.Normal,
		palette: telnet.ColorPalette,
	}

	if err := conn.WriteLine(welcomeBanner); err != nil {
		return fmt.Errorf("sending welcome: %w", err)
	}

	evaluated := 0
	for {
		if err := ctx.Err(); err != nil {
			_ = conn.WriteLine(telnet.Paint(s.palette.Info, "Server shutting down. Goodbye!"))
			return err
		}

		if err := conn.WritePrompt(telnet.Paint(s.palette.Prompt, prompt)); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}

		line, err := conn.ReadLine()
		if errors.Is(err, telnet.ErrLineTooLong) {
			_ = conn.WriteLine(RenderError(err, s.palette))
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				s.logger.Info("client disconnected",
					zap.Int("evaluations", evaluated),
					zap.Duration("session_duration", time.Since(start)),
				)
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if cmd, ok := commands[strings.ToLower(fields[0])]; ok {
			quit, err := cmd(ctx, h, s, fields[1:])
			if err != nil {
				return err
			}
			if quit {
				s.logger.Info("client quit",
					zap.Int("evaluations", evaluated),
					zap.Duration("session_duration", time.Since(start)),
				)
				return nil
			}
			continue
		}

		evaluated++
		if err := h.evaluate(ctx, s, line); err != nil {
			return err
		}
	}
}

// evaluate answers one expression line. Evaluation failures are reported to
// the client; only write failures end the session.
func (h *DiceHandler) evaluate(ctx context.Context, s *session, expression string) error {
	res, err := h.eval.Evaluate(ctx, expression, s.mode)
	if err != nil {
		if errors.Is(err, dice.ErrInternal) {
			s.logger.Error("evaluation failed", zap.String("expression", expression), zap.Error(err))
		}
		return s.conn.WriteLine(RenderError(err, s.palette))
	}
	return s.conn.WriteLine(RenderResult(res, s.verbose, s.palette))
}
