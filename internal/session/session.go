package session

import (
	"context"
	"time"

	"tillgate.dev/internal/device"
)

// Record is the persisted metadata for one refresh session. It is keyed by
// the refresh token's jti; the token itself is never stored.
type Record struct {
	JTI          string      `json:"jti"`
	CreatedAt    time.Time   `json:"created_at"`
	LastActiveAt time.Time   `json:"last_active_at"`
	ExpiresAt    time.Time   `json:"expires_at"`
	ClientIP     string      `json:"client_ip,omitempty"`
	UserAgent    string      `json:"user_agent,omitempty"`
	Device       device.Info `json:"device_info"`
}

// Expired reports whether the record's validity window has passed at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !r.ExpiresAt.After(now)
}

// Store manages one principal's session collection. Every mutation is a
// read-modify-write over the whole collection; callers serialize concurrent
// mutations per principal (the auth service holds a keyed lock).
type Store interface {
	// Add purges expired records for the principal, then inserts or
	// overwrites the record under its jti.
	Add(ctx context.Context, principalID int64, rec Record) error
	// List returns the non-expired records, most recently active first.
	// The ordering is a contract: UI consumers render it as-is.
	List(ctx context.Context, principalID int64) ([]Record, error)
	// Touch advances LastActiveAt to now; absent jti is a no-op.
	Touch(ctx context.Context, principalID int64, jti string, now time.Time) error
	// Remove deletes one record, reporting whether it was present.
	Remove(ctx context.Context, principalID int64, jti string) (bool, error)
	// RemoveAll clears the collection, reporting whether anything was removed.
	RemoveAll(ctx context.Context, principalID int64) (bool, error)
	// RemoveAllExcept retains only keep (when present) and drops the rest.
	RemoveAllExcept(ctx context.Context, principalID int64, keep string) error
}
