package core

import (
	"context"
	"sync"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/history"
)

// Manager maps room ids to their actors. Rooms are instantiated lazily
// on first access and addressable for the life of the process; their
// content outlives session churn via the history store.
type Manager struct {
	ctx   context.Context
	store history.Store

	mu    sync.RWMutex
	rooms map[domain.RoomID]*Room
}

func NewManager(ctx context.Context, store history.Store) *Manager {
	return &Manager{
		ctx:   ctx,
		store: store,
		rooms: make(map[domain.RoomID]*Room),
	}
}

func (m *Manager) GetOrCreate(id domain.RoomID) *Room {
	m.mu.RLock()
	room, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return room
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok = m.rooms[id]; ok {
		return room
	}
	room = newRoom(m.ctx, id, m.store)
	m.rooms[id] = room
	go room.run()
	return room
}

// InfoFor reports live counters without instantiating the room.
func (m *Manager) InfoFor(id domain.RoomID) (RoomInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	if !ok {
		return RoomInfo{}, false
	}
	return room.Info(), true
}

func (m *Manager) List() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.Info())
	}
	return out
}
