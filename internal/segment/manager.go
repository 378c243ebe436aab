package segment

import "sync"

// Manager holds one engine per campaign, created lazily from a loader.
// Applied segments live only as long as the process; nothing here is
// persisted.
type Manager struct {
	mu      sync.Mutex
	engines map[string]*Engine
}

func NewManager() *Manager {
	return &Manager{engines: map[string]*Engine{}}
}

// Engine returns the engine for a campaign, creating it with load on first
// use.
func (m *Manager) Engine(campaign string, load func() ([]Customer, error)) (*Engine, error) {
	m.mu.Lock()
	if e, ok := m.engines[campaign]; ok {
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	// load outside the lock; creation races resolve in favor of the first
	customers, err := load()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.engines[campaign]; ok {
		return e, nil
	}
	e := NewEngine(customers)
	m.engines[campaign] = e
	return e, nil
}

// Rebase replaces one campaign's base collection if an engine exists.
func (m *Manager) Rebase(campaign string, customers []Customer) {
	m.mu.Lock()
	e, ok := m.engines[campaign]
	m.mu.Unlock()
	if ok {
		e.Rebase(customers)
	}
}

// Campaigns lists campaigns with live engines.
func (m *Manager) Campaigns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.engines))
	for name := range m.engines {
		out = append(out, name)
	}
	return out
}
