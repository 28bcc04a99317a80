package scripting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roll/internal/dice"
)

// ErrUnknownMacro is returned by CallMacro when no loaded script defines the
// named function.
var ErrUnknownMacro = errors.New("scripting: unknown macro")

// ErrScript wraps every runtime failure raised inside a script or macro,
// including evaluator errors surfaced through the dice module.
var ErrScript = errors.New("scripting: script failed")

// Manager runs one-shot macro scripts and owns a long-lived library VM whose
// global functions can be called by name.
//
// Manager is safe for concurrent use. The library VM is single-threaded, so
// CallMacro calls are serialized.
type Manager struct {
	mu        sync.Mutex
	library   *lua.LState
	cancel    context.CancelFunc
	macros    []string
	out       *output
	eval      *dice.LoggedEvaluator
	logger    *zap.Logger
	instLimit int
}

// NewManager creates a Manager whose dice module evaluates with eval.
//
// Precondition: eval and logger must be non-nil; instLimit >= 0 (0 selects
// DefaultInstructionLimit).
// Postcondition: Returns a non-nil Manager with no library loaded.
func NewManager(eval *dice.LoggedEvaluator, logger *zap.Logger, instLimit int) *Manager {
	if eval == nil {
		panic("scripting.NewManager: eval must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		out:       &output{},
		eval:      eval,
		logger:    logger,
		instLimit: instLimit,
	}
}

// RunFile executes the script at path in a fresh sandbox. args are exposed
// as the global arg table, with arg[0] set to path.
//
// Postcondition: print output went to out; the sandbox is closed.
func (m *Manager) RunFile(ctx context.Context, path string, args []string, out io.Writer) error {
	return m.run(ctx, path, args, out, func(L *lua.LState) error { return L.DoFile(path) })
}

// RunString executes src in a fresh sandbox, like RunFile. name becomes arg[0].
func (m *Manager) RunString(ctx context.Context, name, src string, args []string, out io.Writer) error {
	return m.run(ctx, name, args, out, func(L *lua.LState) error { return L.DoString(src) })
}

func (m *Manager) run(ctx context.Context, name string, args []string, out io.Writer, exec func(*lua.LState) error) error {
	L, cancel := NewSandboxedState(m.instLimit)
	defer cancel()
	defer L.Close()

	m.RegisterModules(L, out)
	argTable := L.NewTable()
	argTable.RawSetInt(0, lua.LString(name))
	for i, a := range args {
		argTable.RawSetInt(i+1, lua.LString(a))
	}
	L.SetGlobal("arg", argTable)

	if err := withBudget(ctx, L, m.instLimit, func() error { return exec(L) }); err != nil {
		m.logger.Warn("scripting: macro failed", zap.String("script", name), zap.Error(err))
		return fmt.Errorf("%w: running %q: %w", ErrScript, name, err)
	}
	return nil
}

// LoadMacros replaces the library VM with one that has executed every *.lua
// file in dir in lexicographic order. Every global function the files define
// becomes callable through CallMacro.
//
// Precondition: dir must be a readable directory.
// Postcondition: on error the previous library stays in place.
func (m *Manager) LoadMacros(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading macro dir %q: %w", dir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L, cancel := NewSandboxedState(m.instLimit)
	m.RegisterModules(L, m.out)
	builtins := globalNames(L)

	for _, path := range luaFiles {
		if err := withBudget(context.Background(), L, m.instLimit, func() error { return L.DoFile(path) }); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	var macros []string
	L.G.Global.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if _, isFn := v.(*lua.LFunction); ok && isFn && !builtins[string(name)] {
			macros = append(macros, string(name))
		}
	})
	sort.Strings(macros)

	m.mu.Lock()
	old, oldCancel := m.library, m.cancel
	m.library, m.cancel, m.macros = L, cancel, macros
	m.mu.Unlock()

	if old != nil {
		oldCancel()
		old.Close()
	}
	m.logger.Info("scripting: macros loaded",
		zap.String("dir", dir),
		zap.Int("files", len(luaFiles)),
		zap.Strings("macros", macros),
	)
	return nil
}

func globalNames(L *lua.LState) map[string]bool {
	names := make(map[string]bool)
	L.G.Global.ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			names[string(s)] = true
		}
	})
	return names
}

// Macros returns the names of the callable library functions, sorted.
func (m *Manager) Macros() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.macros...)
}

// CallMacro calls the library function name with args as strings and returns
// its first result converted with tostring, or "" when it returns nothing.
//
// Postcondition: print output of the macro went to out.
func (m *Manager) CallMacro(ctx context.Context, name string, args []string, out io.Writer) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.library == nil {
		return "", fmt.Errorf("%w: %q (no macros loaded)", ErrUnknownMacro, name)
	}
	L := m.library
	fn, ok := L.GetGlobal(name).(*lua.LFunction)
	if !ok || fn.IsG || !slices.Contains(m.macros, name) {
		return "", fmt.Errorf("%w: %q", ErrUnknownMacro, name)
	}

	m.out.w = out
	defer func() { m.out.w = nil }()

	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = lua.LString(a)
	}

	err := withBudget(ctx, L, m.instLimit, func() error {
		return L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, largs...)
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("macro", name),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: macro %q: %w", ErrScript, name, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	if ret == lua.LNil {
		return "", nil
	}
	return L.ToStringMeta(ret).String(), nil
}

// Close releases the library VM.
//
// Postcondition: CallMacro fails with ErrUnknownMacro until LoadMacros runs again.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.library != nil {
		m.cancel()
		m.library.Close()
	}
	m.library, m.cancel, m.macros = nil, nil, nil
}
