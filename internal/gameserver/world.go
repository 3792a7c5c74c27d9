package gameserver

import (
	"github.com/cory-johannsen/arcana/internal/game/ability"
	"github.com/cory-johannsen/arcana/internal/game/npc"
	"github.com/cory-johannsen/arcana/internal/game/session"
)

// World answers ability field queries over live NPCs and connected players.
type World struct {
	npcs     *npc.Manager
	sessions *session.Manager
}

// NewWorld creates a World over npcs and sessions.
func NewWorld(npcs *npc.Manager, sessions *session.Manager) *World {
	return &World{npcs: npcs, sessions: sessions}
}

// EntitiesIn implements ability.World: NPCs first, then players.
func (w *World) EntitiesIn(b ability.Box) []ability.Target {
	out := w.npcs.EntitiesIn(b)
	return append(out, w.sessions.EntitiesIn(b)...)
}
