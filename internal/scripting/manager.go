package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Env is the game surface visible to a script during one hook call.
type Env interface {
	// Damage harms the target with the given ID. Returns false if no such target.
	Damage(targetID string, amount float64) bool
	// ApplyEffect applies a timed effect to the target. Returns false if no such target.
	ApplyEffect(targetID, effect string, ticks, amplifier int) bool
}

// Manager owns one sandboxed LState holding every ability script.
//
// The LState is single-threaded; all hook calls are serialized by mu.
type Manager struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
	env       Env
	logger    *zap.Logger
}

// NewManager creates a Manager with an empty sandboxed VM.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 = DefaultInstructionLimit).
// Postcondition: Returns a non-nil Manager with the engine module registered.
func NewManager(logger *zap.Logger, instLimit int) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	m := &Manager{
		L:         NewSandboxedState(instLimit),
		instLimit: instLimit,
		logger:    logger,
	}
	m.RegisterModules(m.L)
	return m
}

// Load executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: returns an error on the first file that fails to load;
// files loaded before it remain defined.
func (m *Manager) Load(scriptDir string) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, path := range luaFiles {
		cancel := limitInstructions(m.L, m.instLimit)
		err := m.L.DoFile(path)
		cancel()
		if err != nil {
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}
	m.logger.Info("ability scripts loaded",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// HasHook reports whether a global function named hook is defined.
func (m *Manager) HasHook(hook string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		return false
	}
	_, ok := m.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// CallHook calls the named Lua global function with env bound to the engine
// module. Returns LNil if the hook is not defined. Lua runtime errors,
// including an exhausted instruction budget, are logged at Warn and never propagated.
//
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(env Env, hook string, args ...lua.LValue) lua.LValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		return lua.LNil
	}

	fn := m.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil
	}

	m.env = env
	defer func() { m.env = nil }()
	cancel := limitInstructions(m.L, m.instLimit)
	defer cancel()

	if err := m.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil
	}

	ret := m.L.Get(-1)
	m.L.Pop(1)
	return ret
}

// Close releases the VM. Subsequent calls to CallHook return LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}
}
