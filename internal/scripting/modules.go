package scripting

import (
	"context"
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roll/internal/dice"
)

// output is the destination of Lua print for the macro currently running.
type output struct {
	w io.Writer
}

func (o *output) Write(p []byte) (int, error) {
	if o.w == nil {
		return len(p), nil
	}
	return o.w.Write(p)
}

// RegisterModules installs the dice and log tables and redirects print to out.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: dice, log, and print are defined in L.
func (m *Manager) RegisterModules(L *lua.LState, out io.Writer) {
	L.SetGlobal("dice", m.newDiceModule(L))
	L.SetGlobal("log", m.newLogModule(L))
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		_, _ = io.WriteString(out, strings.Join(parts, "\t")+"\n")
		return 0
	}))
}

func (m *Manager) newDiceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		// dice.roll(expr [, mode]) -> total, history
		"roll": func(L *lua.LState) int {
			res := m.evaluate(L, optMode(L, 2))
			history := L.NewTable()
			for _, h := range res.History {
				history.Append(lua.LString(h))
			}
			L.Push(lua.LNumber(res.Total))
			L.Push(history)
			return 2
		},
		// dice.total(expr [, mode]) -> total
		"total": func(L *lua.LState) int {
			L.Push(lua.LNumber(m.evaluate(L, optMode(L, 2)).Total))
			return 1
		},
		"min": func(L *lua.LState) int {
			L.Push(lua.LNumber(m.evaluate(L, dice.Minimum).Total))
			return 1
		},
		"max": func(L *lua.LState) int {
			L.Push(lua.LNumber(m.evaluate(L, dice.Maximum).Total))
			return 1
		},
	})
	return mod
}

// evaluate runs the expression in argument 1, raising a Lua error on failure.
func (m *Manager) evaluate(L *lua.LState, mode dice.RollOption) *dice.Result {
	expr := L.CheckString(1)
	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := m.eval.Evaluate(ctx, expr, mode)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return nil
	}
	return res
}

func optMode(L *lua.LState, n int) dice.RollOption {
	mode, err := dice.ParseRollOption(L.OptString(n, ""))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return mode
}

func (m *Manager) newLogModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	logAt := func(fn func(string, ...zap.Field)) lua.LGFunction {
		return func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}
	}
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"debug": logAt(m.logger.Debug),
		"info":  logAt(m.logger.Info),
		"warn":  logAt(m.logger.Warn),
		"error": logAt(m.logger.Error),
	})
	return mod
}
