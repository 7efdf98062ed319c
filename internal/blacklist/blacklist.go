package blacklist

import (
	"sync"
	"time"
)

// Blacklist records revoked token identifiers until their natural expiry.
// Presence means "revoked"; absence means "not revoked". Entries are never
// read as revoked past their TTL, so the TTL is always the remaining access
// token window, never the refresh window.
type Blacklist interface {
	Put(jti string, ttl time.Duration)
	Contains(jti string) bool
}

// Memory is an in-process TTL cache implementation. Expired entries are
// dropped lazily on read and swept by a background janitor.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
	stop    chan struct{}
}

var _ Blacklist = (*Memory)(nil)

// Option configures Memory.
type Option func(*Memory)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Memory) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewMemory constructs the cache and starts its janitor.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		entries: make(map[string]time.Time),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.janitor(time.Minute)
	return m
}

// Put marks jti revoked for ttl. Negative TTLs are clamped to zero, which
// expires the entry immediately.
func (m *Memory) Put(jti string, ttl time.Duration) {
	if jti == "" {
		return
	}
	if ttl < 0 {
		ttl = 0
	}
	m.mu.Lock()
	m.entries[jti] = m.now().Add(ttl)
	m.mu.Unlock()
}

// Contains reports whether jti is currently revoked.
func (m *Memory) Contains(jti string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	deadline, ok := m.entries[jti]
	if !ok {
		return false
	}
	if !deadline.After(m.now()) {
		delete(m.entries, jti)
		return false
	}
	return true
}

// Close stops the janitor.
func (m *Memory) Close() {
	close(m.stop)
}

func (m *Memory) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			now := m.now()
			m.mu.Lock()
			for jti, deadline := range m.entries {
				if !deadline.After(now) {
					delete(m.entries, jti)
				}
			}
			m.mu.Unlock()
		}
	}
}
