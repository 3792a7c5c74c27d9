// Package session provides connected player tracking and the per-player event
// channel fed by the simulation.
package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arcana/internal/game/ability"
)

// FieldEvent tells a client where a player's active ability field is this tick.
type FieldEvent struct {
	Kind  string
	Field ability.Box
	Tick  int64
}

// BridgeEntity routes events to a Go channel, bridging the simulation to
// whatever transport delivers them to the client.
type BridgeEntity struct {
	id     uuid.UUID
	events chan FieldEvent
	mu     sync.Mutex
	closed bool
}

// NewBridgeEntity creates a BridgeEntity for the given player.
//
// Postcondition: Returns a BridgeEntity with an open events channel.
func NewBridgeEntity(id uuid.UUID, bufferSize int) *BridgeEntity {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &BridgeEntity{
		id:     id,
		events: make(chan FieldEvent, bufferSize),
	}
}

// ID returns the player's identifier.
func (e *BridgeEntity) ID() uuid.UUID {
	return e.id
}

// Push enqueues ev without blocking.
//
// Postcondition: ev is enqueued, or an error if the entity is closed or full.
func (e *BridgeEntity) Push(ev FieldEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("entity %s is closed", e.id)
	}
	select {
	case e.events <- ev:
		return nil
	default:
		return fmt.Errorf("entity %s event buffer full", e.id)
	}
}

// Events returns the read-only events channel.
func (e *BridgeEntity) Events() <-chan FieldEvent {
	return e.events
}

// Close marks the entity as closed and closes the events channel.
//
// Postcondition: The events channel is closed. Further Push calls return an error.
func (e *BridgeEntity) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed {
		e.closed = true
		close(e.events)
	}
	return nil
}

// IsClosed reports whether the entity has been closed.
func (e *BridgeEntity) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// FieldRenderer implements ability.Renderer by pushing FieldEvents to the
// caster's entity.
type FieldRenderer struct {
	sessions  *Manager
	scheduler *ability.Scheduler
	logger    *zap.Logger
}

// NewFieldRenderer creates a FieldRenderer. scheduler supplies the ability kind
// and tick count and may be set later with Attach.
func NewFieldRenderer(sessions *Manager, logger *zap.Logger) *FieldRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FieldRenderer{sessions: sessions, logger: logger}
}

// Attach binds the scheduler whose abilities are rendered.
// Must be called before the first tick.
func (r *FieldRenderer) Attach(s *ability.Scheduler) {
	r.scheduler = s
}

// RenderField implements ability.Renderer.
func (r *FieldRenderer) RenderField(c ability.Caster, field ability.Box) {
	sess, ok := r.sessions.GetPlayer(c.ID())
	if !ok {
		return
	}
	ev := FieldEvent{Field: field}
	if r.scheduler != nil {
		if st, ok := r.scheduler.Active(c.ID()); ok {
			ev.Kind = string(st.Kind)
			ev.Tick = st.Ticks()
		}
	}
	if err := sess.Entity.Push(ev); err != nil {
		r.logger.Debug("field event dropped", zap.Stringer("player", c.ID()), zap.Error(err))
	}
}
