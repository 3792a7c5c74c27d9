package ability

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arcana/internal/game/perk"
)

var (
	// ErrOnCooldown is returned when the ability's post-use marker is still active.
	ErrOnCooldown = errors.New("ability is on cooldown")
	// ErrPerkNotHeld is returned when the player does not hold an ability perk of the requested kind.
	ErrPerkNotHeld = errors.New("ability perk not held")
	// ErrUnknownAbility is returned when no factory is registered for the perk's effect.
	ErrUnknownAbility = errors.New("unknown ability effect")
)

// Factory builds the Ability for a perk's parameters.
type Factory func(params perk.AbilityParams, world World) (Ability, error)

// CooldownReader reports whether a post-use marker is active.
type CooldownReader interface {
	Active(player uuid.UUID, key string) bool
}

// Activator turns activation requests into scheduler toggles and enforces
// cooldown markers, which the scheduler never reads.
type Activator struct {
	index     *perk.Index
	scheduler *Scheduler
	cooldowns CooldownReader
	world     World
	logger    *zap.Logger

	mu        sync.RWMutex
	factories map[string]Factory
}

// NewActivator creates an Activator with the built-in damage_field and buff_field effects registered.
//
// Precondition: index and scheduler must be non-nil.
func NewActivator(index *perk.Index, scheduler *Scheduler, cooldowns CooldownReader, world World, logger *zap.Logger) *Activator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Activator{
		index:     index,
		scheduler: scheduler,
		cooldowns: cooldowns,
		world:     world,
		logger:    logger,
		factories: make(map[string]Factory),
	}
	a.Register("damage_field", NewDamageField)
	a.Register("buff_field", NewBuffField)
	return a
}

// Register binds effect to f, replacing any previous factory.
func (a *Activator) Register(effect string, f Factory) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.factories[effect] = f
}

// Activate toggles the ability granted by perk kind for c.
// A running ability is always stopped, whatever its kind and cooldown state.
//
// Postcondition: Returns started=true when a new ability began; ErrOnCooldown,
// ErrPerkNotHeld or ErrUnknownAbility when activation was refused.
func (a *Activator) Activate(c Caster, kind perk.Kind) (bool, error) {
	if a.scheduler.Stop(c) {
		return false, nil
	}
	if a.cooldowns != nil && a.cooldowns.Active(c.ID(), string(kind)) {
		return false, ErrOnCooldown
	}
	var params perk.AbilityParams
	if !perk.ApplyAs(a.index, c.ID(), kind, func(_ perk.Resolved, p perk.AbilityParams) { params = p }) {
		return false, ErrPerkNotHeld
	}
	a.mu.RLock()
	factory, ok := a.factories[params.Effect]
	a.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownAbility, params.Effect)
	}
	started, err := a.scheduler.ToggleOrStart(c, func() (*State, error) {
		ab, err := factory(params, a.world)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", params.Effect, err)
		}
		return NewState(c.ID(), kind, params, ab), nil
	})
	if err != nil {
		a.logger.Warn("ability activation failed",
			zap.Stringer("player", c.ID()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
	return started, err
}
