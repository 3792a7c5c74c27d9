package npc

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arcana/internal/game/ability"
	"github.com/cory-johannsen/arcana/internal/game/condition"
)

// Instance is a live NPC. It implements ability.Target.
type Instance struct {
	// ID uniquely identifies this runtime instance.
	ID string
	// TemplateID is the source template's ID.
	TemplateID string
	// Name is copied from the template for display.
	Name string
	// MaxHP is the instance's maximum hit points.
	MaxHP float64
	// Effects holds the status effects applied by ability fields.
	Effects *condition.Set

	mu     sync.Mutex
	pos    ability.Vec3
	hp     float64
	allies map[uuid.UUID]bool
}

// NewInstance creates a live NPC instance from a template at pos.
//
// Precondition: id must be non-empty; tmpl must be non-nil.
// Postcondition: HP equals tmpl.MaxHP.
func NewInstance(id string, tmpl *Template, pos ability.Vec3) *Instance {
	return &Instance{
		ID:         id,
		TemplateID: tmpl.ID,
		Name:       tmpl.Name,
		MaxHP:      tmpl.MaxHP,
		Effects:    condition.NewSet(),
		pos:        pos,
		hp:         tmpl.MaxHP,
		allies:     make(map[uuid.UUID]bool),
	}
}

// TargetID implements ability.Target.
func (i *Instance) TargetID() string {
	return i.ID
}

// Position returns the instance's position.
func (i *Instance) Position() ability.Vec3 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pos
}

// MoveTo relocates the instance.
func (i *Instance) MoveTo(p ability.Vec3) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.pos = p
}

// Befriend makes the instance friendly to player.
func (i *Instance) Befriend(player uuid.UUID) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.allies[player] = true
}

// FriendlyTo implements ability.Target. NPCs are hostile unless befriended.
func (i *Instance) FriendlyTo(player uuid.UUID) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.allies[player]
}

// Damage implements ability.Target. HP never drops below zero.
func (i *Instance) Damage(amount float64) {
	if !(amount > 0) {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hp -= amount
	if i.hp < 0 {
		i.hp = 0
	}
}

// ApplyEffect implements ability.Target.
func (i *Instance) ApplyEffect(effect string, ticks, amplifier int) {
	i.Effects.Apply(effect, ticks, amplifier)
}

// HP returns the current hit points.
func (i *Instance) HP() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.hp
}

// IsDead reports whether the instance has zero hit points.
func (i *Instance) IsDead() bool {
	return i.HP() <= 0
}
