package directory

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Memory is an in-process Directory used in tests and demos.
type Memory struct {
	mu      sync.RWMutex
	byID    map[int64]*Principal
	byLogin map[string]*Principal
}

var _ Directory = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[int64]*Principal),
		byLogin: make(map[string]*Principal),
	}
}

// Add registers a principal with a plaintext password (hashed here).
func (m *Memory) Add(p Principal, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	p.PasswordHash = string(hash)
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := p
	m.byID[p.ID] = &stored
	m.byLogin[strings.ToLower(p.Login)] = &stored
	return nil
}

func (m *Memory) Authenticate(_ context.Context, login, password string) (*Principal, error) {
	m.mu.RLock()
	p, ok := m.byLogin[strings.ToLower(strings.TrimSpace(login))]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if p.Disabled {
		return nil, ErrInvalidCredentials
	}
	if VerifyPassword(p.PasswordHash, password) != nil {
		return nil, ErrInvalidCredentials
	}
	out := *p
	return &out, nil
}

func (m *Memory) Get(_ context.Context, id int64) (*Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *Memory) HasCapability(_ context.Context, id int64, capability string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	return p.HasCapability(capability), nil
}
