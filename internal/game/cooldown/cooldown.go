// Package cooldown tracks timed per-player markers such as post-use ability cooldowns.
package cooldown

import (
	"sync"

	"github.com/google/uuid"
)

// Expired identifies a marker removed by Tick.
type Expired struct {
	Player uuid.UUID
	Key    string
}

// Tracker holds the remaining ticks of every active marker.
// All methods are safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	markers map[uuid.UUID]map[string]int
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{markers: make(map[uuid.UUID]map[string]int)}
}

// Start sets marker key on player for ticks ticks.
// Restarting an active marker keeps the longer of the two durations.
// ticks <= 0 is a no-op.
//
// Postcondition: Active(player, key) is true when ticks > 0.
func (t *Tracker) Start(player uuid.UUID, key string, ticks int) {
	if ticks <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.markers[player]
	if m == nil {
		m = make(map[string]int)
		t.markers[player] = m
	}
	if ticks > m[key] {
		m[key] = ticks
	}
}

// Active reports whether marker key is set on player.
func (t *Tracker) Active(player uuid.UUID, key string) bool {
	return t.Remaining(player, key) > 0
}

// Remaining returns the ticks left on marker key, or 0 if not set.
func (t *Tracker) Remaining(player uuid.UUID, key string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.markers[player][key]
}

// Tick decrements every marker by one and removes those that reach zero.
//
// Postcondition: for every returned entry, Active(entry.Player, entry.Key) is false.
func (t *Tracker) Tick() []Expired {
	t.mu.Lock()
	defer t.mu.Unlock()
	var expired []Expired
	for player, m := range t.markers {
		for key, left := range m {
			left--
			if left <= 0 {
				expired = append(expired, Expired{Player: player, Key: key})
				delete(m, key)
				continue
			}
			m[key] = left
		}
		if len(m) == 0 {
			delete(t.markers, player)
		}
	}
	return expired
}

// Clear removes every marker held by player.
func (t *Tracker) Clear(player uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.markers, player)
}
