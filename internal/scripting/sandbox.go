// Package scripting runs ability field hooks in a sandboxed GopherLua VM. It
// knows nothing about the game; scripts reach targets only through the Env
// bound to each hook call.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit caps the opcodes one hook call may execute when no
// limit is configured.
const DefaultInstructionLimit = 100_000

// unsafeGlobals are removed from every sandboxed state.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"}

// opBudget cancels itself once Done has been polled limit times. The VM polls
// Done once per opcode, so the budget counts instructions exactly.
type opBudget struct {
	context.Context
	left   atomic.Int64
	cancel context.CancelFunc
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// limitInstructions gives L a fresh budget of limit opcodes (0 means
// DefaultInstructionLimit) and returns the function releasing it.
func limitInstructions(L *lua.LState, limit int) context.CancelFunc {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(limit))
	L.SetContext(b)
	return cancel
}

// NewSandboxedState returns an LState with only the base, table, string and
// math libraries, the unsafe globals removed, and an initial instruction budget.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: the caller owns the state and must Close it.
func NewSandboxedState(instLimit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	limitInstructions(L, instLimit) //nolint:govet // released by the next limitInstructions call
	return L
}
