package pg

import (
	"context"
	"database/sql"
	"errors"

	"tillgate.dev/internal/keyring"
)

// KeyKV implements the keyring's persistent KV store over the signing_keys
// table. Secrets are written once and never updated; an insert conflict
// keeps the first writer's value so two racing servers converge on one
// secret.
type KeyKV struct {
	db *sql.DB
}

var _ keyring.KV = (*KeyKV)(nil)

func NewKeyKV(db *sql.DB) *KeyKV {
	return &KeyKV{db: db}
}

func (s *KeyKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `select value from signing_keys where key=$1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *KeyKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		insert into signing_keys(key, value) values($1, $2)
		on conflict (key) do nothing
	`, key, value)
	return err
}
