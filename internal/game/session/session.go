package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arcana/internal/game/ability"
	"github.com/cory-johannsen/arcana/internal/game/condition"
)

var (
	// ErrAlreadyConnected is returned by AddPlayer for a player already registered.
	ErrAlreadyConnected = errors.New("player already connected")
	// ErrNotFound is returned for operations on an unknown player.
	ErrNotFound = errors.New("player not found")
)

// PlayerSession tracks a connected player's position and mana pool.
// It implements ability.Caster and ability.Target; players are friendly to
// every other player.
type PlayerSession struct {
	id uuid.UUID
	// Name is the display name used in logs.
	Name string
	// Entity is the bridge entity for pushing events to the player.
	Entity *BridgeEntity
	// Effects holds the status effects applied by ability fields.
	Effects *condition.Set

	mu          sync.Mutex
	pos         ability.Vec3
	mana        int
	maxMana     int
	damageTaken float64
}

// ID returns the player's identifier.
func (s *PlayerSession) ID() uuid.UUID {
	return s.id
}

// Position returns the player's current position.
func (s *PlayerSession) Position() ability.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// SetPosition moves the player.
func (s *PlayerSession) SetPosition(p ability.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = p
}

// Mana returns the current mana.
func (s *PlayerSession) Mana() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mana
}

// MaxMana returns the size of the mana pool.
func (s *PlayerSession) MaxMana() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxMana
}

// RemoveMana subtracts n from the pool, never going below zero.
func (s *PlayerSession) RemoveMana(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mana -= n
	if s.mana < 0 {
		s.mana = 0
	}
}

// RegenMana adds n to the pool, clamped to the maximum.
//
// Postcondition: Returns the mana after regeneration.
func (s *PlayerSession) RegenMana(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.mana += n
		if s.mana > s.maxMana {
			s.mana = s.maxMana
		}
	}
	return s.mana
}

// TargetID implements ability.Target.
func (s *PlayerSession) TargetID() string {
	return s.id.String()
}

// FriendlyTo implements ability.Target.
func (s *PlayerSession) FriendlyTo(uuid.UUID) bool {
	return true
}

// Damage implements ability.Target by accumulating the damage taken.
func (s *PlayerSession) Damage(amount float64) {
	if !(amount > 0) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.damageTaken += amount
}

// DamageTaken returns the total damage taken this session.
func (s *PlayerSession) DamageTaken() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.damageTaken
}

// ApplyEffect implements ability.Target.
func (s *PlayerSession) ApplyEffect(effect string, ticks, amplifier int) {
	s.Effects.Apply(effect, ticks, amplifier)
}

// Manager tracks all connected player sessions.
// All methods are safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	players map[uuid.UUID]*PlayerSession
}

// NewManager creates an empty session Manager.
func NewManager() *Manager {
	return &Manager{players: make(map[uuid.UUID]*PlayerSession)}
}

// AddPlayer registers a new player session with a full mana pool.
//
// Precondition: maxMana must be >= 0.
// Postcondition: Returns the created PlayerSession, or ErrAlreadyConnected.
func (m *Manager) AddPlayer(id uuid.UUID, name string, pos ability.Vec3, maxMana int) (*PlayerSession, error) {
	if maxMana < 0 {
		return nil, fmt.Errorf("max mana must be >= 0, got %d", maxMana)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.players[id]; exists {
		return nil, fmt.Errorf("player %s: %w", id, ErrAlreadyConnected)
	}
	sess := &PlayerSession{
		id:      id,
		Name:    name,
		Entity:  NewBridgeEntity(id, 64),
		Effects: condition.NewSet(),
		pos:     pos,
		mana:    maxMana,
		maxMana: maxMana,
	}
	m.players[id] = sess
	return sess, nil
}

// RemovePlayer removes a player session and closes its entity.
//
// Postcondition: Returns the removed session, or ErrNotFound.
func (m *Manager) RemovePlayer(id uuid.UUID) (*PlayerSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.players[id]
	if !exists {
		return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	_ = sess.Entity.Close()
	delete(m.players, id)
	return sess, nil
}

// GetPlayer returns the session for id.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (m *Manager) GetPlayer(id uuid.UUID) (*PlayerSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.players[id]
	return sess, ok
}

// AllPlayers returns every connected session ordered by player ID.
func (m *Manager) AllPlayers() []*PlayerSession {
	m.mu.RLock()
	out := make([]*PlayerSession, 0, len(m.players))
	for _, sess := range m.players {
		out = append(out, sess)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].id.String() < out[j].id.String()
	})
	return out
}

// EntitiesIn returns every connected player inside b, ordered by player ID.
func (m *Manager) EntitiesIn(b ability.Box) []ability.Target {
	var out []ability.Target
	for _, sess := range m.AllPlayers() {
		if b.Contains(sess.Position()) {
			out = append(out, sess)
		}
	}
	return out
}

// PlayerCount returns the total number of connected players.
func (m *Manager) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}
