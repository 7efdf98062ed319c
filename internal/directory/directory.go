package directory

import (
	"context"
	"errors"
	"time"
)

// Capability names understood by the auth subsystem.
const (
	CapabilityManageSessions = "manage_sessions"
	CapabilityManageShop     = "manage_shop"
)

var (
	ErrNotFound           = errors.New("directory: principal not found")
	ErrInvalidCredentials = errors.New("directory: invalid credentials")
	ErrDisabled           = errors.New("directory: principal disabled")
)

// Principal is an authenticated identity from the host platform's user
// directory. The numeric ID is stable and is the token subject.
type Principal struct {
	ID           int64
	Login        string
	DisplayName  string
	PasswordHash string
	Capabilities []string
	Disabled     bool
	CreatedAt    time.Time
}

// HasCapability reports whether the principal carries the named capability.
func (p *Principal) HasCapability(name string) bool {
	for _, c := range p.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// Directory is the external user directory collaborator.
type Directory interface {
	// Authenticate validates login/password and returns the principal.
	// Failures are ErrInvalidCredentials regardless of which check failed.
	Authenticate(ctx context.Context, login, password string) (*Principal, error)
	// Get loads a principal by ID, ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*Principal, error)
	// HasCapability reports whether the principal holds the capability.
	// Unknown principals simply have no capabilities.
	HasCapability(ctx context.Context, id int64, capability string) (bool, error)
}
