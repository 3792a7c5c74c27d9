package ability_test

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arcana/internal/game/ability"
)

type fakeCaster struct {
	mu   sync.Mutex
	id   uuid.UUID
	pos  ability.Vec3
	mana int
}

func newCaster(mana int) *fakeCaster {
	return &fakeCaster{id: uuid.New(), mana: mana}
}

func (c *fakeCaster) ID() uuid.UUID          { return c.id }
func (c *fakeCaster) Position() ability.Vec3 { return c.pos }

func (c *fakeCaster) Mana() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mana
}

func (c *fakeCaster) RemoveMana(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mana -= n
}

type effectCall struct {
	effect    string
	ticks     int
	amplifier int
}

type fakeTarget struct {
	id       string
	pos      ability.Vec3
	friendly map[uuid.UUID]bool
	damage   float64
	effects  []effectCall
}

func (t *fakeTarget) TargetID() string                 { return t.id }
func (t *fakeTarget) FriendlyTo(player uuid.UUID) bool { return t.friendly[player] }
func (t *fakeTarget) Damage(amount float64)            { t.damage += amount }

func (t *fakeTarget) ApplyEffect(effect string, ticks, amplifier int) {
	t.effects = append(t.effects, effectCall{effect: effect, ticks: ticks, amplifier: amplifier})
}

type fakeWorld struct {
	targets []*fakeTarget
}

func (w *fakeWorld) EntitiesIn(b ability.Box) []ability.Target {
	var out []ability.Target
	for _, t := range w.targets {
		if b.Contains(t.pos) {
			out = append(out, t)
		}
	}
	return out
}

// journal records the order of scheduler-visible events.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

func (j *journal) count(e string) int {
	n := 0
	for _, x := range j.list() {
		if x == e {
			n++
		}
	}
	return n
}

// scriptedAbility records calls and ends after stopAfter ticks (0 = never).
type scriptedAbility struct {
	j         *journal
	stopAfter int
	ticks     int
}

func (a *scriptedAbility) Tick(_ ability.Caster, _ ability.Box) bool {
	a.ticks++
	a.j.add("tick")
	return a.stopAfter == 0 || a.ticks < a.stopAfter
}

func (a *scriptedAbility) Release(_ ability.Caster, _ ability.Box) { a.j.add("release") }

func (a *scriptedAbility) InField(_ ability.Caster, _ ability.Box) []ability.Target { return nil }

type fakeRenderer struct{ j *journal }

func (r *fakeRenderer) RenderField(_ ability.Caster, _ ability.Box) { r.j.add("render") }

type cooldownCall struct {
	player uuid.UUID
	key    string
	ticks  int
}

type fakeCooldowns struct {
	mu    sync.Mutex
	calls []cooldownCall
}

func (f *fakeCooldowns) Start(player uuid.UUID, key string, ticks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cooldownCall{player: player, key: key, ticks: ticks})
}
