package ability

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNilState is returned by ToggleOrStart when the supplier yields no state.
var ErrNilState = errors.New("ability supplier returned nil state")

// Supplier constructs the state of an ability about to start.
type Supplier func() (*State, error)

// Scheduler holds at most one active ability per player.
//
// Tick, ToggleOrStart and Stop are driven by the simulation goroutine; Active
// and ActiveCount may be called from any goroutine. The scheduler does not
// consult cooldown markers; callers reject activation during cooldown.
type Scheduler struct {
	active    sync.Map // uuid.UUID -> *State
	renderer  Renderer
	cooldowns Cooldowns
	logger    *zap.Logger
}

// NewScheduler creates an empty Scheduler. renderer and cooldowns may be nil.
func NewScheduler(renderer Renderer, cooldowns Cooldowns, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{renderer: renderer, cooldowns: cooldowns, logger: logger}
}

// ToggleOrStart stops c's active ability if there is one; otherwise it starts
// the ability built by supply.
//
// Postcondition: started is true iff a new ability was stored; at most one
// ability is active for c afterwards.
func (s *Scheduler) ToggleOrStart(c Caster, supply Supplier) (started bool, err error) {
	if s.Stop(c) {
		return false, nil
	}
	st, err := supply()
	if err != nil {
		return false, err
	}
	if st == nil {
		return false, ErrNilState
	}
	if _, loaded := s.active.LoadOrStore(c.ID(), st); loaded {
		return false, nil
	}
	s.logger.Debug("ability started",
		zap.Stringer("player", c.ID()),
		zap.String("kind", string(st.Kind)),
	)
	return true, nil
}

// Tick advances c's active ability by one tick: pay mana, run the effect, then
// present the field. A failed payment or an effect reporting it is done stops
// the ability and runs its release.
func (s *Scheduler) Tick(c Caster) {
	v, ok := s.active.Load(c.ID())
	if !ok {
		return
	}
	st := v.(*State)

	cost := st.charge()
	if c.Mana() < cost {
		s.logger.Debug("ability out of mana",
			zap.Stringer("player", c.ID()),
			zap.String("kind", string(st.Kind)),
			zap.Int("cost", cost),
		)
		s.Stop(c)
		return
	}
	c.RemoveMana(cost)
	st.ticks.Add(1)

	field := st.Field(c)
	if !st.Ability.Tick(c, field) {
		s.Stop(c)
		return
	}
	if s.renderer != nil {
		s.renderer.RenderField(c, field)
	}
}

// Stop ends c's active ability, running its release and applying its cooldown marker.
//
// Postcondition: Returns true iff an ability was active; release runs exactly once
// per started ability no matter how many callers race to stop it.
func (s *Scheduler) Stop(c Caster) bool {
	v, ok := s.active.LoadAndDelete(c.ID())
	if !ok {
		return false
	}
	st := v.(*State)
	st.Ability.Release(c, st.Field(c))
	if s.cooldowns != nil {
		s.cooldowns.Start(st.Owner, string(st.Kind), st.CooldownTicks)
	}
	s.logger.Debug("ability released",
		zap.Stringer("player", st.Owner),
		zap.String("kind", string(st.Kind)),
		zap.Int64("ticks", st.Ticks()),
	)
	return true
}

// Purge drops player's active ability without running its release.
// Used when the player leaves the simulation and world side effects must not run.
func (s *Scheduler) Purge(player uuid.UUID) bool {
	_, ok := s.active.LoadAndDelete(player)
	return ok
}

// Active returns player's active ability state.
func (s *Scheduler) Active(player uuid.UUID) (*State, bool) {
	v, ok := s.active.Load(player)
	if !ok {
		return nil, false
	}
	return v.(*State), true
}

// IsActive reports whether player has an active ability.
func (s *Scheduler) IsActive(player uuid.UUID) bool {
	_, ok := s.active.Load(player)
	return ok
}

// ActiveCount returns the number of players with an active ability.
func (s *Scheduler) ActiveCount() int {
	n := 0
	s.active.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close purges every active ability without running releases.
// Called when the server session ends.
func (s *Scheduler) Close() {
	s.active.Range(func(k, _ any) bool {
		s.active.Delete(k)
		return true
	})
}
