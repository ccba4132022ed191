package backup

import (
	"context"
	"sync"
)

// MemoryHistory is an in-memory HistoryStore for tests and the dev server.
type MemoryHistory struct {
	mu      sync.RWMutex
	history []Snapshot
}

func NewMemoryHistory() *MemoryHistory { return &MemoryHistory{} }

func (m *MemoryHistory) Load(_ context.Context) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, len(m.history))
	copy(out, m.history)
	return out, nil
}

func (m *MemoryHistory) Save(_ context.Context, history []Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = make([]Snapshot, len(history))
	copy(m.history, history)
	return nil
}

// MemorySettings is an in-memory SettingsStore.
type MemorySettings struct {
	mu       sync.RWMutex
	settings Settings
}

func NewMemorySettings() *MemorySettings {
	return &MemorySettings{settings: DefaultSettings()}
}

func (m *MemorySettings) Load(_ context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *MemorySettings) Save(_ context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}
