package perk

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arcana/internal/game/affinity"
	"github.com/cory-johannsen/arcana/internal/game/school"
)

// Resolved is the perk a player currently holds for one Kind.
// It is derived from tiers and may be discarded and recomputed at any time.
type Resolved struct {
	Def    *Definition
	School school.School
	Tier   affinity.Tier
}

// TierSource supplies a player's current tier in every school.
type TierSource interface {
	Tiers(player uuid.UUID) [school.Count]affinity.Tier
}

// trackingSource is a TierSource that knows which players it still holds.
// Index never stores an entry for a player such a source has dropped.
type trackingSource interface {
	Tracked(player uuid.UUID) bool
}

// resolvedSet is one player's index entry. It is immutable once stored.
type resolvedSet struct {
	byKind map[Kind]Resolved
}

// Index caches the resolved perks of every player.
//
// Entries are replaced whole on Rebuild, so concurrent readers always observe
// either the previous or the new set, never a mix.
type Index struct {
	catalog *Catalog
	tiers   TierSource
	logger  *zap.Logger
	entries sync.Map // uuid.UUID -> *resolvedSet

	// writeMu orders Rebuild and Forget so the last write always reflects
	// tiers read after every earlier tier change.
	writeMu sync.Mutex
}

// NewIndex creates an empty Index.
//
// Precondition: catalog and tiers must be non-nil.
func NewIndex(catalog *Catalog, tiers TierSource, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{catalog: catalog, tiers: tiers, logger: logger}
}

// Rebuild recomputes player's resolved perks from their current tiers.
//
// For each Kind the definition with the highest tier wins; between schools granting
// the same Kind at the same tier, the school earlier in school.All() wins.
// Postcondition: player's entry is replaced atomically; a player the tier
// source no longer tracks has no entry.
func (x *Index) Rebuild(player uuid.UUID) {
	x.writeMu.Lock()
	defer x.writeMu.Unlock()
	if ts, ok := x.tiers.(trackingSource); ok && !ts.Tracked(player) {
		x.entries.Delete(player)
		return
	}
	x.entries.Store(player, x.resolve(x.tiers.Tiers(player)))
}

func (x *Index) resolve(tiers [school.Count]affinity.Tier) *resolvedSet {
	set := &resolvedSet{byKind: make(map[Kind]Resolved)}
	for _, s := range school.All() {
		for t := affinity.TierNone; t <= tiers[s]; t++ {
			for _, d := range x.catalog.DefinitionsFor(s, t) {
				if cur, ok := set.byKind[d.Kind]; ok && cur.Tier >= t {
					continue
				}
				set.byKind[d.Kind] = Resolved{Def: d, School: s, Tier: t}
			}
		}
	}
	return set
}

// OnTierChange implements affinity.TierListener.
func (x *Index) OnTierChange(player uuid.UUID, changes []affinity.TierChange) {
	x.logger.Debug("rebuilding perk index",
		zap.Stringer("player", player),
		zap.Int("tier_changes", len(changes)),
	)
	x.Rebuild(player)
}

// Forget drops player's entry.
func (x *Index) Forget(player uuid.UUID) {
	x.writeMu.Lock()
	defer x.writeMu.Unlock()
	x.entries.Delete(player)
}

func (x *Index) entry(player uuid.UUID) *resolvedSet {
	v, ok := x.entries.Load(player)
	if !ok {
		return nil
	}
	return v.(*resolvedSet)
}

// Get returns the perk of kind held by player.
func (x *Index) Get(player uuid.UUID, kind Kind) (Resolved, bool) {
	set := x.entry(player)
	if set == nil {
		return Resolved{}, false
	}
	r, ok := set.byKind[kind]
	return r, ok
}

// Has reports whether player holds a perk of kind.
func (x *Index) Has(player uuid.UUID, kind Kind) bool {
	_, ok := x.Get(player, kind)
	return ok
}

// SourceSchool returns the school granting player's perk of kind.
func (x *Index) SourceSchool(player uuid.UUID, kind Kind) (school.School, bool) {
	r, ok := x.Get(player, kind)
	return r.School, ok
}

// SourceTier returns the tier granting player's perk of kind, or TierNone when not held.
func (x *Index) SourceTier(player uuid.UUID, kind Kind) affinity.Tier {
	r, _ := x.Get(player, kind)
	return r.Tier
}

// ApplyHighestTier calls fn with player's perk of kind, whatever its variant.
// Returns whether fn was called.
func (x *Index) ApplyHighestTier(player uuid.UUID, kind Kind, fn func(Resolved)) bool {
	r, ok := x.Get(player, kind)
	if !ok {
		return false
	}
	fn(r)
	return true
}

// Apply calls fn only if player holds kind and its payload is of variant v.
// A variant mismatch is treated as not held.
func (x *Index) Apply(player uuid.UUID, kind Kind, v Variant, fn func(Resolved)) bool {
	r, ok := x.Get(player, kind)
	if !ok || r.Def.Variant() != v {
		return false
	}
	fn(r)
	return true
}

// ApplyAs calls fn with the typed payload when player holds kind with a payload of type P.
func ApplyAs[P Payload](x *Index, player uuid.UUID, kind Kind, fn func(Resolved, P)) bool {
	r, ok := x.Get(player, kind)
	if !ok {
		return false
	}
	p, ok := r.Def.Payload.(P)
	if !ok {
		return false
	}
	fn(r, p)
	return true
}

// Active returns every perk player holds, ordered by kind.
func (x *Index) Active(player uuid.UUID) []Resolved {
	set := x.entry(player)
	if set == nil {
		return nil
	}
	out := make([]Resolved, 0, len(set.byKind))
	for _, r := range set.byKind {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Def.Kind < out[j].Def.Kind })
	return out
}
