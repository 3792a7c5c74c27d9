package npc

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cory-johannsen/arcana/internal/game/ability"
)

// Manager tracks all live NPC instances by ID.
// All methods are safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	instances map[string]*Instance
	counter   atomic.Uint64
}

// NewManager creates an empty NPC Manager.
func NewManager() *Manager {
	return &Manager{instances: make(map[string]*Instance)}
}

// Spawn creates a new Instance from tmpl at pos.
//
// Precondition: tmpl must be non-nil.
// Postcondition: Returns a new Instance with a unique ID.
func (m *Manager) Spawn(tmpl *Template, pos ability.Vec3) (*Instance, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("npc.Manager.Spawn: tmpl must not be nil")
	}
	n := m.counter.Add(1)
	inst := NewInstance(fmt.Sprintf("%s-%d", tmpl.ID, n), tmpl, pos)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[inst.ID] = inst
	return inst, nil
}

// Populate spawns one instance per spawn point of every template.
//
// Postcondition: Returns the number of instances spawned.
func (m *Manager) Populate(templates []*Template) int {
	n := 0
	for _, t := range templates {
		for _, p := range t.Spawns {
			if _, err := m.Spawn(t, p.Vec()); err == nil {
				n++
			}
		}
	}
	return n
}

// Remove deletes an instance by ID.
//
// Postcondition: Returns an error if the instance is not found.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[id]; !ok {
		return fmt.Errorf("npc instance %q not found", id)
	}
	delete(m.instances, id)
	return nil
}

// Get returns the instance with the given ID.
//
// Postcondition: Returns (inst, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(id string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	return inst, ok
}

// All returns a snapshot of every live instance sorted by ID.
func (m *Manager) All() []*Instance {
	m.mu.RLock()
	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of live instances.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}

// EntitiesIn returns every live instance inside b, sorted by ID.
func (m *Manager) EntitiesIn(b ability.Box) []ability.Target {
	var out []ability.Target
	for _, inst := range m.All() {
		if !inst.IsDead() && b.Contains(inst.Position()) {
			out = append(out, inst)
		}
	}
	return out
}

// Tick advances every instance's effects by one tick and removes dead instances.
//
// Postcondition: Returns the IDs of the instances removed this tick.
func (m *Manager) Tick() []string {
	var dead []string
	for _, inst := range m.All() {
		inst.Effects.Tick()
		if inst.IsDead() {
			dead = append(dead, inst.ID)
		}
	}
	if len(dead) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range dead {
		delete(m.instances, id)
	}
	return dead
}
