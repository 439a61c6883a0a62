package profilestore

import (
	"fmt"
	"sync"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/ports"
)

// Memory is an in-process ProfileStore for tests and ephemeral sessions.
// Profiles go through the same encoding as the SQLite store.
type Memory struct {
	mu       sync.Mutex
	profiles map[string][]byte
	current  string
}

func NewMemory() *Memory {
	return &Memory{profiles: map[string][]byte{}}
}

var _ ports.ProfileStore = (*Memory)(nil)

func (m *Memory) LoadAll() (map[string]domain.RequestProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]domain.RequestProfile, len(m.profiles))
	for name, b := range m.profiles {
		p, err := decode(b)
		if err != nil {
			return nil, corrupt(name, err)
		}
		out[name] = p
	}
	return out, nil
}

func (m *Memory) Save(name string, p domain.RequestProfile) error {
	if name == "" {
		return &domain.OpError{Op: "profilestore.save", Kind: domain.KindState, Err: domain.ErrEmptyProfileKey}
	}
	b, err := encode(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[name] = b
	return nil
}

func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[name]; !ok {
		return missing("profilestore.delete", name)
	}
	if len(m.profiles) <= 1 {
		return &domain.OpError{Op: "profilestore.delete", Kind: domain.KindState, Path: name, Err: domain.ErrLastProfile}
	}
	delete(m.profiles, name)
	return nil
}

func (m *Memory) CurrentName() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, nil
}

func (m *Memory) SetCurrent(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[name]; !ok {
		return missing("profilestore.current", name)
	}
	m.current = name
	return nil
}

func missing(op, name string) error {
	return &domain.OpError{Op: op, Kind: domain.KindNotFound, Path: name, Err: fmt.Errorf("profile %q: %w", name, domain.ErrNotFound)}
}

func corrupt(name string, err error) error {
	return &domain.OpError{Op: "profilestore.load", Kind: domain.KindInvalidConfig, Path: name, Err: err}
}
