package ability

import (
	"math"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arcana/internal/game/perk"
)

// Ability is the behaviour of one channeled field.
type Ability interface {
	// Tick runs the per-tick effect after mana has been paid.
	// Returning false ends the ability.
	Tick(c Caster, field Box) bool
	// Release runs once when the ability ends for any reason other than a purge.
	Release(c Caster, field Box)
	// InField returns the targets the ability acts on inside field.
	InField(c Caster, field Box) []Target
}

// State is one player's active ability.
type State struct {
	Owner         uuid.UUID
	Kind          perk.Kind
	HalfExtents   perk.Extents
	CostPerTick   float64
	CooldownTicks int
	Ability       Ability

	ticks atomic.Int64
}

// NewState builds the state for an ability granted by an AbilityParams perk.
func NewState(owner uuid.UUID, kind perk.Kind, params perk.AbilityParams, a Ability) *State {
	return &State{
		Owner:         owner,
		Kind:          kind,
		HalfExtents:   params.HalfExtents,
		CostPerTick:   params.ManaCostPerTick,
		CooldownTicks: params.CooldownTicks,
		Ability:       a,
	}
}

// Field returns the ability volume centred on c's current position.
func (s *State) Field(c Caster) Box {
	return BoxAround(c.Position(), s.HalfExtents)
}

// Ticks returns the number of ticks the ability has been paid for.
func (s *State) Ticks() int64 {
	return s.ticks.Load()
}

// charge is the mana taken per tick: the configured cost rounded, never below 1.
func (s *State) charge() int {
	cost := int(math.Round(s.CostPerTick))
	if cost < 1 {
		return 1
	}
	return cost
}
