package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"tillgate.dev/internal/session"
)

// Meta implements the per-principal metadata store over the principal_meta
// table, one JSONB document per (principal, namespace) pair.
type Meta struct {
	db *sql.DB
}

var _ session.MetaStore = (*Meta)(nil)

func NewMeta(db *sql.DB) *Meta {
	return &Meta{db: db}
}

func (s *Meta) Get(ctx context.Context, principalID int64, namespace string) (map[string]json.RawMessage, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`select data from principal_meta where principal_id=$1 and namespace=$2`,
		principalID, namespace,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	values := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *Meta) Put(ctx context.Context, principalID int64, namespace string, values map[string]json.RawMessage) error {
	if values == nil {
		values = map[string]json.RawMessage{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into principal_meta(principal_id, namespace, data, updated_at)
		values ($1, $2, $3, now())
		on conflict (principal_id, namespace) do update
		set data = excluded.data, updated_at = now()
	`, principalID, namespace, data)
	return err
}
