package affinity

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arcana/internal/game/school"
)

// Params are the tuning constants of the ledger.
type Params struct {
	// GainMultiplier converts spent mana into affinity: gain = mana * GainMultiplier / 100.
	GainMultiplier float64
	// OpposingPenaltyFraction is the share of the gain taken from the opposite school.
	// The rest is spread evenly over the remaining schools.
	OpposingPenaltyFraction float64
	Thresholds              Thresholds
}

// Validate checks the parameter invariants.
func (p Params) Validate() error {
	if !(p.GainMultiplier > 0) || math.IsInf(p.GainMultiplier, 0) {
		return fmt.Errorf("gain multiplier must be > 0, got %v", p.GainMultiplier)
	}
	if !(p.OpposingPenaltyFraction >= 0 && p.OpposingPenaltyFraction <= 1) {
		return fmt.Errorf("opposing penalty fraction must be in [0, 1], got %v", p.OpposingPenaltyFraction)
	}
	return p.Thresholds.Validate()
}

// TierChange records a school whose tier moved during one ledger update.
type TierChange struct {
	School school.School
	From   Tier
	To     Tier
}

// TierListener is notified once per ledger update that changed at least one tier.
type TierListener interface {
	OnTierChange(player uuid.UUID, changes []TierChange)
}

// TierListenerFunc adapts a function to TierListener.
type TierListenerFunc func(player uuid.UUID, changes []TierChange)

// OnTierChange calls f.
func (f TierListenerFunc) OnTierChange(player uuid.UUID, changes []TierChange) { f(player, changes) }

// Ledger owns the affinity vector of every tracked player.
//
// Writes are expected from the simulation goroutine; reads are safe from any goroutine.
// Vectors are replaced whole, so a reader never observes a partially applied update.
type Ledger struct {
	graph  *school.Graph
	params Params
	logger *zap.Logger

	mu      sync.RWMutex
	players map[uuid.UUID]Vector

	lmu       sync.RWMutex
	listeners []TierListener
}

// NewLedger creates an empty Ledger.
//
// Precondition: params must pass Validate; graph nil selects school.Default().
// Postcondition: Returns a Ledger with no tracked players, or a non-nil error.
func NewLedger(graph *school.Graph, params Params, logger *zap.Logger) (*Ledger, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("affinity params: %w", err)
	}
	if graph == nil {
		graph = school.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		graph:   graph,
		params:  params,
		logger:  logger,
		players: make(map[uuid.UUID]Vector),
	}, nil
}

// Subscribe registers l to receive tier-change notifications.
func (l *Ledger) Subscribe(listener TierListener) {
	l.lmu.Lock()
	defer l.lmu.Unlock()
	l.listeners = append(l.listeners, listener)
}

// Thresholds returns the tier thresholds the ledger derives tiers with.
func (l *Ledger) Thresholds() Thresholds {
	return l.params.Thresholds
}

// Track registers player with the given starting vector, replacing any previous state.
// Tier listeners are not notified; callers rebuild derived state themselves after loading.
//
// Postcondition: the stored vector is normalized.
func (l *Ledger) Track(player uuid.UUID, v Vector) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.players[player] = v.Normalized()
}

// Forget stops tracking player and returns its final vector.
func (l *Ledger) Forget(player uuid.UUID) (Vector, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.players[player]
	delete(l.players, player)
	return v, ok
}

// Tracked reports whether player has a ledger entry.
func (l *Ledger) Tracked(player uuid.UUID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.players[player]
	return ok
}

// Players returns the IDs of every tracked player.
func (l *Ledger) Players() []uuid.UUID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(l.players))
	for id := range l.players {
		out = append(out, id)
	}
	return out
}

// Snapshot returns a copy of player's vector; untracked players read as all zero.
func (l *Ledger) Snapshot(player uuid.UUID) Vector {
	l.mu.RLock()
	v, ok := l.players[player]
	l.mu.RUnlock()
	if !ok {
		l.logger.Debug("affinity snapshot for untracked player", zap.Stringer("player", player))
	}
	return v
}

// Affinity returns player's affinity in s.
func (l *Ledger) Affinity(player uuid.UUID, s school.School) float64 {
	return l.Snapshot(player).Get(s)
}

// Tier returns player's current tier in s.
func (l *Ledger) Tier(player uuid.UUID, s school.School) Tier {
	return l.params.Thresholds.TierOf(l.Affinity(player, s))
}

// Tiers returns player's current tier in every school.
func (l *Ledger) Tiers(player uuid.UUID) [school.Count]Tier {
	return l.params.Thresholds.Tiers(l.Snapshot(player))
}

// ApplyDelta records mana spent casting in s.
func (l *Ledger) ApplyDelta(player uuid.UUID, s school.School, mana float64) {
	l.ApplySpend(player, []school.School{s}, mana)
}

// ApplySpend records mana spent on a cast drawing from every school in schools.
// The mana is split evenly across the schools and the resulting changes are
// applied as one update, so listeners see at most one notification per cast.
//
// Postcondition: player's vector satisfies the Vector invariant. Untracked players,
// unknown schools, an empty school list and non-positive or non-finite mana are no-ops.
func (l *Ledger) ApplySpend(player uuid.UUID, schools []school.School, mana float64) {
	if len(schools) == 0 || !(mana > 0) || math.IsInf(mana, 0) {
		l.logger.Debug("ignoring affinity spend",
			zap.Stringer("player", player),
			zap.Int("schools", len(schools)),
			zap.Float64("mana", mana),
		)
		return
	}
	for _, s := range schools {
		if !s.Valid() {
			l.logger.Debug("ignoring affinity spend for unknown school",
				zap.Stringer("player", player),
				zap.Stringer("school", s),
			)
			return
		}
	}
	l.update(player, func(v Vector) Vector {
		return v.Add(l.deltas(schools, mana))
	})
}

// Set overwrites player's affinity in s with value, then normalizes.
func (l *Ledger) Set(player uuid.UUID, s school.School, value float64) {
	if !s.Valid() {
		return
	}
	l.update(player, func(v Vector) Vector {
		v[s] = value
		return v.Normalized()
	})
}

// ErrNothingToReset is returned by Reset when player holds no affinity.
var ErrNothingToReset = errors.New("no progress to reset")

// Reset zeroes every school for player.
//
// Postcondition: Returns ErrNothingToReset when player is untracked or already all zero.
func (l *Ledger) Reset(player uuid.UUID) error {
	if l.Snapshot(player).IsZero() {
		return ErrNothingToReset
	}
	l.update(player, func(Vector) Vector { return Vector{} })
	return nil
}

// deltas computes the combined change for one cast across schools.
func (l *Ledger) deltas(schools []school.School, mana float64) Vector {
	var d Vector
	share := mana / float64(len(schools))
	for _, s := range schools {
		gain := share * l.params.GainMultiplier / 100
		d[s] += gain

		opp, hasOpp := l.graph.Opposite(s)
		var rest float64
		if hasOpp {
			d[opp] -= gain * l.params.OpposingPenaltyFraction
			rest = gain * (1 - l.params.OpposingPenaltyFraction) / (school.Count - 2)
		} else {
			rest = gain / (school.Count - 1)
		}
		for _, o := range school.All() {
			if o == s || (hasOpp && o == opp) {
				continue
			}
			d[o] -= rest
		}
	}
	return d
}

// update applies fn to player's vector as one atomic replacement and notifies
// listeners of any tier changes.
func (l *Ledger) update(player uuid.UUID, fn func(Vector) Vector) {
	l.mu.Lock()
	before, ok := l.players[player]
	if !ok {
		l.mu.Unlock()
		l.logger.Debug("affinity update for untracked player", zap.Stringer("player", player))
		return
	}
	after := fn(before)
	l.players[player] = after
	l.mu.Unlock()

	changes := l.tierChanges(before, after)
	if len(changes) == 0 {
		return
	}
	l.lmu.RLock()
	listeners := make([]TierListener, len(l.listeners))
	copy(listeners, l.listeners)
	l.lmu.RUnlock()
	for _, listener := range listeners {
		listener.OnTierChange(player, changes)
	}
}

func (l *Ledger) tierChanges(before, after Vector) []TierChange {
	var changes []TierChange
	for _, s := range school.All() {
		from := l.params.Thresholds.TierOf(before[s])
		to := l.params.Thresholds.TierOf(after[s])
		if from != to {
			changes = append(changes, TierChange{School: s, From: from, To: to})
		}
	}
	return changes
}
