package auth

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Relay/internal/domain"
)

type Memory struct {
	mu      sync.RWMutex
	records map[domain.RoomID]domain.Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[domain.RoomID]domain.Record)}
}

func (m *Memory) Lookup(_ context.Context, room domain.RoomID) (domain.Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[room]
	return rec, ok, nil
}

func (m *Memory) Put(_ context.Context, room domain.RoomID, rec domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[room] = rec
	return nil
}

func (m *Memory) Delete(_ context.Context, room domain.RoomID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, room)
	return nil
}

func (m *Memory) List(_ context.Context) ([]Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Credential, 0, len(m.records))
	for id, rec := range m.records {
		out = append(out, Credential{RoomID: id, Record: rec})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
