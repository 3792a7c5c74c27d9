// Package condition tracks timed status effects applied to entities by
// ability fields.
package condition

import (
	"sort"
	"sync"
)

// Active is one effect currently applied to an entity.
type Active struct {
	Name      string
	Amplifier int
	Remaining int
}

// Set tracks every effect currently applied to one entity.
// All methods are safe for concurrent use.
type Set struct {
	mu      sync.Mutex
	effects map[string]*Active
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{effects: make(map[string]*Active)}
}

// Apply adds or refreshes the named effect.
// Re-applying keeps the longer duration and the stronger amplifier.
// ticks <= 0 is a no-op.
//
// Postcondition: Has(name) is true when ticks > 0.
func (s *Set) Apply(name string, ticks, amplifier int) {
	if ticks <= 0 || name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.effects[name]; ok {
		if ticks > existing.Remaining {
			existing.Remaining = ticks
		}
		if amplifier > existing.Amplifier {
			existing.Amplifier = amplifier
		}
		return
	}
	s.effects[name] = &Active{Name: name, Amplifier: amplifier, Remaining: ticks}
}

// Remove deletes the named effect. Removing an absent effect is a no-op.
func (s *Set) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.effects, name)
}

// Tick decrements every effect by one tick and removes those that reach zero.
//
// Postcondition: For every name in the returned slice, Has(name) is false.
func (s *Set) Tick() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []string
	for name, a := range s.effects {
		a.Remaining--
		if a.Remaining <= 0 {
			expired = append(expired, name)
			delete(s.effects, name)
		}
	}
	sort.Strings(expired)
	return expired
}

// Has reports whether the named effect is active.
func (s *Set) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.effects[name]
	return ok
}

// Get returns a copy of the named effect.
func (s *Set) Get(name string) (Active, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.effects[name]
	if !ok {
		return Active{}, false
	}
	return *a, true
}

// All returns a copy of every active effect sorted by name.
func (s *Set) All() []Active {
	s.mu.Lock()
	out := make([]Active, 0, len(s.effects))
	for _, a := range s.effects {
		out = append(out, *a)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
