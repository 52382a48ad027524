package history

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/domain"
)

// Memory is the in-process substrate. Logs vanish with the process,
// which is within the non-durability contract.
type Memory struct {
	mu   sync.RWMutex
	ttl  time.Duration
	max  int
	logs map[domain.RoomID][]domain.Entry
}

func NewMemory(ttl time.Duration, max int) *Memory {
	return &Memory{
		ttl:  ttl,
		max:  max,
		logs: make(map[domain.RoomID][]domain.Entry),
	}
}

func (m *Memory) Append(_ context.Context, room domain.RoomID, e domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[room] = Prune(append(m.logs[room], e), time.Now(), m.ttl, m.max)
	return nil
}

func (m *Memory) Read(_ context.Context, room domain.RoomID) ([]domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Prune(m.logs[room], time.Now(), m.ttl, m.max), nil
}
