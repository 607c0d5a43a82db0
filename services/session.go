package services

import (
	"sync"
	"time"

	"restaurant-chatbot/models"
)

// Mode is the conversation state for a device. Exactly one mode is active at
// a time.
type Mode int

const (
	ModeIdle Mode = iota
	ModeAwaitingSelection
	ModeAwaitingSchedule
)

// Session is the transient per-device conversational context. It is not
// persisted; on process restart the current order is recovered from storage
// but the mode resets to idle.
type Session struct {
	Order      *models.Order
	Mode       Mode
	LastActive time.Time
}

// SessionStore holds one session per device id.
type SessionStore interface {
	Get(deviceID string) (*Session, bool)
	Put(deviceID string, s *Session)
	Evict(deviceID string)
	Len() int
}

// MemorySessionStore keeps sessions in a mutex-guarded map and evicts entries
// idle longer than the TTL via a background janitor.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
}

func (m *MemorySessionStore) Get(deviceID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[deviceID]
	if ok {
		s.LastActive = time.Now()
	}
	return s, ok
}

func (m *MemorySessionStore) Put(deviceID string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.LastActive = time.Now()
	m.sessions[deviceID] = s
}

func (m *MemorySessionStore) Evict(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, deviceID)
}

func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle longer than the TTL and returns how many were
// evicted. A TTL of zero disables eviction.
func (m *MemorySessionStore) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastActive) > m.ttl {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// StartJanitor sweeps stale sessions on the given interval until Stop is
// called.
func (m *MemorySessionStore) StartJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep(time.Now())
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *MemorySessionStore) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}
