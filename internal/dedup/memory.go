package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/coneflip/overlay-server-go/internal/clock"
)

// Memory is a process-local TTL set.
type Memory struct {
	clock clock.Clock
	ttl   time.Duration

	mu      sync.Mutex
	expires map[string]time.Time
}

func NewMemory(c clock.Clock, ttl time.Duration) *Memory {
	return &Memory{
		clock:   c,
		ttl:     ttl,
		expires: make(map[string]time.Time),
	}
}

func (m *Memory) Claim(_ context.Context, key string) (bool, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.expires[key] = now.Add(m.ttl)
	return true, nil
}

// Sweep drops expired keys and returns how many were removed.
func (m *Memory) Sweep(_ context.Context) (int64, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for key, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, key)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.expires)
}
