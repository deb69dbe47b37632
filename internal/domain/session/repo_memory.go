package session

import (
	"context"
	"sync"
	"time"

	"github.com/ehr/clinicaldash/internal/domain/extraction"
)

type memoryEntry struct {
	state    *State
	lastSeen time.Time
}

type memoryLock struct {
	token   string
	expires time.Time
}

// MemoryStore keeps state in process. Entries idle for longer than ttl are
// removed by Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	locks   map[string]memoryLock
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		locks:   make(map[string]memoryLock),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now()
	if m.ttl > 0 && now.Sub(e.lastSeen) > m.ttl {
		delete(m.entries, id)
		return nil, ErrNotFound
	}
	e.lastSeen = now
	return clone(e.state), nil
}

func (m *MemoryStore) Save(_ context.Context, s *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.ID] = &memoryEntry{state: clone(s), lastSeen: m.now()}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) Acquire(_ context.Context, id, token string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if l, ok := m.locks[id]; ok && now.Before(l.expires) {
		return false, nil
	}
	m.locks[id] = memoryLock{token: token, expires: now.Add(ttl)}
	return true, nil
}

func (m *MemoryStore) Release(_ context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[id]; ok && l.token == token {
		delete(m.locks, id)
	}
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.entries {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.entries, id)
			removed++
		}
	}
	for id, l := range m.locks {
		if !now.Before(l.expires) {
			delete(m.locks, id)
		}
	}
	return removed
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// clone copies the step slice so callers never share it with the store.
// Results are never mutated after generation and are shared.
func clone(s *State) *State {
	cp := *s
	cp.Steps = append([]extraction.ProcessStep{}, s.Steps...)
	return &cp
}
