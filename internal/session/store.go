package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Namespace under which session collections live in the metadata store.
const Namespace = "auth_sessions"

// MetaStore is the host platform's per-principal metadata store: an opaque
// string-keyed document collection scoped to one principal and namespace.
type MetaStore interface {
	Get(ctx context.Context, principalID int64, namespace string) (map[string]json.RawMessage, error)
	Put(ctx context.Context, principalID int64, namespace string, values map[string]json.RawMessage) error
}

// MetaStoreSessions implements Store over a MetaStore collection, one JSON
// document per session record.
type MetaStoreSessions struct {
	meta MetaStore
	now  func() time.Time
}

var _ Store = (*MetaStoreSessions)(nil)

// NewStore wraps meta into a session Store. now defaults to time.Now.
func NewStore(meta MetaStore, now func() time.Time) *MetaStoreSessions {
	if now == nil {
		now = time.Now
	}
	return &MetaStoreSessions{meta: meta, now: now}
}

func (s *MetaStoreSessions) load(ctx context.Context, principalID int64) (map[string]Record, error) {
	raw, err := s.meta.Get(ctx, principalID, Namespace)
	if err != nil {
		return nil, fmt.Errorf("session: load collection: %w", err)
	}
	records := make(map[string]Record, len(raw))
	for jti, doc := range raw {
		var rec Record
		if err := json.Unmarshal(doc, &rec); err != nil {
			// Skip documents written by incompatible versions rather than
			// locking the principal out of session management.
			continue
		}
		records[jti] = rec
	}
	return records, nil
}

func (s *MetaStoreSessions) save(ctx context.Context, principalID int64, records map[string]Record) error {
	out := make(map[string]json.RawMessage, len(records))
	for jti, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("session: encode record %s: %w", jti, err)
		}
		out[jti] = doc
	}
	if err := s.meta.Put(ctx, principalID, Namespace, out); err != nil {
		return fmt.Errorf("session: store collection: %w", err)
	}
	return nil
}

func (s *MetaStoreSessions) Add(ctx context.Context, principalID int64, rec Record) error {
	records, err := s.load(ctx, principalID)
	if err != nil {
		return err
	}
	now := s.now()
	for jti, existing := range records {
		if existing.Expired(now) {
			delete(records, jti)
		}
	}
	records[rec.JTI] = rec
	return s.save(ctx, principalID, records)
}

func (s *MetaStoreSessions) List(ctx context.Context, principalID int64) ([]Record, error) {
	records, err := s.load(ctx, principalID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Expired(now) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActiveAt.Equal(out[j].LastActiveAt) {
			return out[i].LastActiveAt.After(out[j].LastActiveAt)
		}
		return out[i].JTI < out[j].JTI
	})
	return out, nil
}

func (s *MetaStoreSessions) Touch(ctx context.Context, principalID int64, jti string, now time.Time) error {
	records, err := s.load(ctx, principalID)
	if err != nil {
		return err
	}
	rec, ok := records[jti]
	if !ok {
		return nil
	}
	rec.LastActiveAt = now
	records[jti] = rec
	return s.save(ctx, principalID, records)
}

func (s *MetaStoreSessions) Remove(ctx context.Context, principalID int64, jti string) (bool, error) {
	records, err := s.load(ctx, principalID)
	if err != nil {
		return false, err
	}
	if _, ok := records[jti]; !ok {
		return false, nil
	}
	delete(records, jti)
	return true, s.save(ctx, principalID, records)
}

func (s *MetaStoreSessions) RemoveAll(ctx context.Context, principalID int64) (bool, error) {
	records, err := s.load(ctx, principalID)
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}
	return true, s.save(ctx, principalID, map[string]Record{})
}

func (s *MetaStoreSessions) RemoveAllExcept(ctx context.Context, principalID int64, keep string) error {
	records, err := s.load(ctx, principalID)
	if err != nil {
		return err
	}
	kept := make(map[string]Record, 1)
	if rec, ok := records[keep]; ok {
		kept[keep] = rec
	}
	return s.save(ctx, principalID, kept)
}
