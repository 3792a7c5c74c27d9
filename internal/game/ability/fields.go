package ability

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/arcana/internal/game/perk"
)

// Magnitude keys read from AbilityParams.Magnitudes.
const (
	MagDamage        = "damage"
	MagPulseTicks    = "pulse_ticks"
	MagStatusTicks   = "status_ticks"
	MagAmplifier     = "amplifier"
	MagMaxTicks      = "max_ticks"
	MagReleaseDamage = "release_damage"
	MagLingerTicks   = "linger_ticks"
)

// DamageField harms every hostile target inside the field and optionally
// inflicts a status on them.
type DamageField struct {
	world         World
	damage        float64
	status        string
	statusTicks   int
	amplifier     int
	pulseEvery    int
	maxTicks      int
	releaseDamage float64

	ticks int
	dealt float64
}

// NewDamageField builds a DamageField from perk parameters.
//
// Precondition: world must be non-nil.
func NewDamageField(params perk.AbilityParams, world World) (Ability, error) {
	if world == nil {
		return nil, errors.New("damage field requires a world")
	}
	pulse := int(params.Magnitude(MagPulseTicks))
	if pulse < 1 {
		pulse = 1
	}
	f := &DamageField{
		world:         world,
		damage:        params.Magnitude(MagDamage),
		status:        params.Status,
		statusTicks:   int(params.Magnitude(MagStatusTicks)),
		amplifier:     int(params.Magnitude(MagAmplifier)),
		pulseEvery:    pulse,
		maxTicks:      int(params.Magnitude(MagMaxTicks)),
		releaseDamage: params.Magnitude(MagReleaseDamage),
	}
	if f.damage < 0 || f.releaseDamage < 0 {
		return nil, fmt.Errorf("damage field magnitudes must not be negative")
	}
	return f, nil
}

// Tick implements Ability. The field pulses every pulseEvery ticks and, when
// maxTicks > 0, ends on its maxTicks-th tick.
//
// Postcondition: returns false from tick maxTicks on, so the scheduler
// charges mana for at most maxTicks ticks.
func (f *DamageField) Tick(c Caster, field Box) bool {
	f.ticks++
	if f.ticks%f.pulseEvery == 0 {
		for _, t := range f.InField(c, field) {
			if f.damage > 0 {
				t.Damage(f.damage)
				f.dealt += f.damage
			}
			if f.status != "" && f.statusTicks > 0 {
				t.ApplyEffect(f.status, f.statusTicks, f.amplifier)
			}
		}
	}
	return f.maxTicks <= 0 || f.ticks < f.maxTicks
}

// Release implements Ability with a final burst of releaseDamage.
func (f *DamageField) Release(c Caster, field Box) {
	if f.releaseDamage <= 0 {
		return
	}
	for _, t := range f.InField(c, field) {
		t.Damage(f.releaseDamage)
		f.dealt += f.releaseDamage
	}
}

// InField implements Ability: hostile targets only.
func (f *DamageField) InField(c Caster, field Box) []Target {
	var out []Target
	for _, t := range f.world.EntitiesIn(field) {
		if !t.FriendlyTo(c.ID()) {
			out = append(out, t)
		}
	}
	return out
}

// Dealt returns the total damage dealt so far.
func (f *DamageField) Dealt() float64 {
	return f.dealt
}

// BuffField keeps a timed effect applied to every friendly target in the field.
type BuffField struct {
	world     World
	effect    string
	duration  int
	amplifier int
	linger    int

	affected map[string]int
}

// NewBuffField builds a BuffField from perk parameters.
//
// Precondition: world must be non-nil; params.Status names the effect.
func NewBuffField(params perk.AbilityParams, world World) (Ability, error) {
	if world == nil {
		return nil, errors.New("buff field requires a world")
	}
	if params.Status == "" {
		return nil, errors.New("buff field requires a status")
	}
	duration := int(params.Magnitude(MagStatusTicks))
	if duration < 1 {
		duration = 1
	}
	return &BuffField{
		world:     world,
		effect:    params.Status,
		duration:  duration,
		amplifier: int(params.Magnitude(MagAmplifier)),
		linger:    int(params.Magnitude(MagLingerTicks)),
		affected:  make(map[string]int),
	}, nil
}

// Tick implements Ability. It never ends the field on its own.
func (b *BuffField) Tick(c Caster, field Box) bool {
	for _, t := range b.InField(c, field) {
		t.ApplyEffect(b.effect, b.duration, b.amplifier)
		b.affected[t.TargetID()]++
	}
	return true
}

// Release implements Ability: targets still inside keep the effect for the linger duration.
func (b *BuffField) Release(c Caster, field Box) {
	if b.linger <= 0 {
		return
	}
	for _, t := range b.InField(c, field) {
		t.ApplyEffect(b.effect, b.linger, b.amplifier)
	}
}

// InField implements Ability: friendly targets only.
func (b *BuffField) InField(c Caster, field Box) []Target {
	var out []Target
	for _, t := range b.world.EntitiesIn(field) {
		if t.FriendlyTo(c.ID()) {
			out = append(out, t)
		}
	}
	return out
}

// Affected returns how many ticks the target with id has been buffed.
func (b *BuffField) Affected(id string) int {
	return b.affected[id]
}
