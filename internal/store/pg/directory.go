package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"tillgate.dev/internal/directory"
)

// Directory implements the user directory over the principals table.
// Capabilities are stored as a JSONB array of capability names.
type Directory struct {
	db *sql.DB
}

var _ directory.Directory = (*Directory)(nil)

func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

const principalColumns = `id, login, display_name, password_hash, capabilities, disabled, created_at`

func scanPrincipal(row *sql.Row) (*directory.Principal, error) {
	var p directory.Principal
	var caps []byte
	err := row.Scan(&p.ID, &p.Login, &p.DisplayName, &p.PasswordHash, &caps, &p.Disabled, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(caps) > 0 {
		if err := json.Unmarshal(caps, &p.Capabilities); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (d *Directory) Authenticate(ctx context.Context, login, password string) (*directory.Principal, error) {
	row := d.db.QueryRowContext(ctx,
		`select `+principalColumns+` from principals where lower(login)=lower($1)`,
		strings.TrimSpace(login),
	)
	p, err := scanPrincipal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if p.Disabled {
		return nil, directory.ErrInvalidCredentials
	}
	if directory.VerifyPassword(p.PasswordHash, password) != nil {
		return nil, directory.ErrInvalidCredentials
	}
	return p, nil
}

func (d *Directory) Get(ctx context.Context, id int64) (*directory.Principal, error) {
	row := d.db.QueryRowContext(ctx, `select `+principalColumns+` from principals where id=$1`, id)
	p, err := scanPrincipal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Directory) HasCapability(ctx context.Context, id int64, capability string) (bool, error) {
	p, err := d.Get(ctx, id)
	if errors.Is(err, directory.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.HasCapability(capability), nil
}

// CreatePrincipal registers a new principal, hashing the password here.
// Used by the bootstrap path and tests, not the HTTP surface.
func (d *Directory) CreatePrincipal(ctx context.Context, login, displayName, password string, capabilities []string) (int64, error) {
	hash, err := directory.HashPassword(password)
	if err != nil {
		return 0, err
	}
	caps, err := json.Marshal(capabilities)
	if err != nil {
		return 0, err
	}
	var id int64
	err = d.db.QueryRowContext(ctx, `
		insert into principals(login, display_name, password_hash, capabilities, disabled, created_at)
		values ($1, $2, $3, $4, false, now())
		returning id
	`, strings.TrimSpace(login), displayName, hash, caps).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}
