package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/tributolabs/formfill/internal/form"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Manager tracks active sessions and sweeps idle ones.
type Manager struct {
	previewWindow time.Duration
	ttl           time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a manager. previewWindow is the debounce interval for
// preview refreshes; ttl is how long an idle session survives.
func NewManager(previewWindow, ttl time.Duration) *Manager {
	m := &Manager{
		previewWindow: previewWindow,
		ttl:           ttl,
		sessions:      make(map[string]*Session),
		stop:          make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Create builds a new session over the given form and template bytes.
func (m *Manager) Create(cfg *form.FormConfig, template []byte) (*Session, error) {
	s, err := New(newID(), cfg, template, m.previewWindow)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete removes and closes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Shutdown stops the sweeper and closes every session.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.mu.Lock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
	m.mu.Unlock()
}

func (m *Manager) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.ttl)
			m.mu.Lock()
			for id, s := range m.sessions {
				if s.TouchedAt().Before(cutoff) {
					s.Close()
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

func newID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
