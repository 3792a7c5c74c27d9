package ability

import (
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/arcana/internal/game/perk"
	"github.com/cory-johannsen/arcana/internal/scripting"
)

// ScriptedField delegates its per-tick and release effects to Lua hooks named
// <status>_tick and <status>_release. Each hook receives the caster ID, the
// tick number and an array of target IDs inside the field. A tick hook
// returning false ends the field.
type ScriptedField struct {
	scripts *scripting.Manager
	world   World
	hook    string
	params  perk.AbilityParams

	ticks int
}

// NewScriptedFieldFactory returns a Factory building ScriptedFields on scripts.
func NewScriptedFieldFactory(scripts *scripting.Manager) Factory {
	return func(params perk.AbilityParams, world World) (Ability, error) {
		if scripts == nil || world == nil {
			return nil, errors.New("scripted field requires scripts and a world")
		}
		if params.Status == "" {
			return nil, errors.New("scripted field requires a status naming its hooks")
		}
		if !scripts.HasHook(params.Status + "_tick") {
			return nil, errors.New("scripted field hook " + params.Status + "_tick is not defined")
		}
		return &ScriptedField{scripts: scripts, world: world, hook: params.Status, params: params}, nil
	}
}

// Tick implements Ability.
func (s *ScriptedField) Tick(c Caster, field Box) bool {
	s.ticks++
	return s.call(c, field, s.hook+"_tick") != lua.LFalse
}

// Release implements Ability.
func (s *ScriptedField) Release(c Caster, field Box) {
	s.call(c, field, s.hook+"_release")
}

// InField implements Ability: every target in the field; scripts filter themselves.
func (s *ScriptedField) InField(_ Caster, field Box) []Target {
	return s.world.EntitiesIn(field)
}

func (s *ScriptedField) call(c Caster, field Box, hook string) lua.LValue {
	targets := s.InField(c, field)
	env := &targetEnv{byID: make(map[string]Target, len(targets))}
	ids := make([]lua.LValue, 0, len(targets))
	for _, t := range targets {
		env.byID[t.TargetID()] = t
		ids = append(ids, lua.LString(t.TargetID()))
	}
	tbl := &lua.LTable{}
	for _, id := range ids {
		tbl.Append(id)
	}
	mags := &lua.LTable{}
	for k, v := range s.params.Magnitudes {
		mags.RawSetString(k, lua.LNumber(v))
	}
	return s.scripts.CallHook(env, hook,
		lua.LString(c.ID().String()),
		lua.LNumber(s.ticks),
		tbl,
		mags,
	)
}

// targetEnv exposes the targets of one hook call to scripts.
type targetEnv struct {
	byID map[string]Target
}

func (e *targetEnv) Damage(id string, amount float64) bool {
	t, ok := e.byID[id]
	if !ok {
		return false
	}
	t.Damage(amount)
	return true
}

func (e *targetEnv) ApplyEffect(id, effect string, ticks, amplifier int) bool {
	t, ok := e.byID[id]
	if !ok {
		return false
	}
	t.ApplyEffect(effect, ticks, amplifier)
	return true
}
