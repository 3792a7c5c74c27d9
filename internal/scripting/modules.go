package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RegisterModules registers the engine table into L:
//
//	engine.log.debug/info/warn(msg)
//	engine.damage(target_id, amount) -> bool
//	engine.effect(target_id, effect, ticks, amplifier) -> bool
//
// engine.damage and engine.effect act on the Env bound to the current hook
// call and return false outside one.
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	log := L.NewTable()
	L.SetField(log, "debug", L.NewFunction(m.logFn(zap.DebugLevel)))
	L.SetField(log, "info", L.NewFunction(m.logFn(zap.InfoLevel)))
	L.SetField(log, "warn", L.NewFunction(m.logFn(zap.WarnLevel)))
	L.SetField(engine, "log", log)

	L.SetField(engine, "damage", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		amount := float64(L.CheckNumber(2))
		ok := m.env != nil && m.env.Damage(id, amount)
		L.Push(lua.LBool(ok))
		return 1
	}))
	L.SetField(engine, "effect", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		effect := L.CheckString(2)
		ticks := L.CheckInt(3)
		amp := L.OptInt(4, 0)
		ok := m.env != nil && m.env.ApplyEffect(id, effect, ticks, amp)
		L.Push(lua.LBool(ok))
		return 1
	}))

	L.SetGlobal("engine", engine)
}

func (m *Manager) logFn(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		m.logger.Log(level, L.CheckString(1), zap.String("source", "lua"))
		return 0
	}
}
