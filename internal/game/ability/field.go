// Package ability runs player-exclusive, tick-driven channeled abilities that
// drain mana every tick and end on exhaustion or release.
package ability

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/arcana/internal/game/perk"
)

// Vec3 is a world position.
type Vec3 struct {
	X, Y, Z float64
}

// Box is an axis-aligned volume.
type Box struct {
	Min, Max Vec3
}

// BoxAround returns the box centred on c with the given half-extents.
func BoxAround(c Vec3, half perk.Extents) Box {
	return Box{
		Min: Vec3{X: c.X - half.X, Y: c.Y - half.Y, Z: c.Z - half.Z},
		Max: Vec3{X: c.X + half.X, Y: c.Y + half.Y, Z: c.Z + half.Z},
	}
}

// Contains reports whether p lies inside b, boundaries included.
func (b Box) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Caster is the player channeling an ability.
type Caster interface {
	ID() uuid.UUID
	Position() Vec3
	// Mana returns the current size of the caster's resource pool.
	Mana() int
	// RemoveMana subtracts n from the pool.
	RemoveMana(n int)
}

// Target is an entity an ability field can act on.
type Target interface {
	TargetID() string
	// FriendlyTo reports whether the target is allied with player.
	FriendlyTo(player uuid.UUID) bool
	Damage(amount float64)
	ApplyEffect(effect string, ticks, amplifier int)
}

// World answers spatial queries for ability fields.
type World interface {
	EntitiesIn(b Box) []Target
}

// Renderer presents an active field to clients.
type Renderer interface {
	RenderField(c Caster, field Box)
}

// Cooldowns receives the post-use marker when an ability is released.
type Cooldowns interface {
	Start(player uuid.UUID, key string, ticks int)
}
