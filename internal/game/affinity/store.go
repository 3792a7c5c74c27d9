package affinity

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store persists affinity vectors between sessions.
type Store interface {
	// Load returns the saved vector for player and whether one exists.
	Load(ctx context.Context, player uuid.UUID) (Vector, bool, error)
	// Save replaces the saved vector for player.
	Save(ctx context.Context, player uuid.UUID, v Vector) error
}

// BatchStore is a Store that can save many players atomically.
type BatchStore interface {
	Store
	// SaveMany replaces the saved vectors of every player in vectors.
	SaveMany(ctx context.Context, vectors map[uuid.UUID]Vector) error
}

// MemoryStore is an in-process Store.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu   sync.Mutex
	data map[uuid.UUID]Vector
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[uuid.UUID]Vector)}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, player uuid.UUID) (Vector, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[player]
	return v, ok, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, player uuid.UUID, v Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[player] = v
	return nil
}
