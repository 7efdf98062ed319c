package keyring

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"tillgate.dev/internal/token"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	kr := New(NewMemoryKV())
	ctx := context.Background()

	first, err := kr.GetOrCreate(ctx, token.KindAccess)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(first) != secretLen {
		t.Fatalf("secret length = %d, want %d", len(first), secretLen)
	}

	second, err := kr.GetOrCreate(ctx, token.KindAccess)
	if err != nil {
		t.Fatalf("GetOrCreate second call: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("secrets differ between calls")
	}
}

func TestSecretsIndependentPerKind(t *testing.T) {
	kr := New(NewMemoryKV())
	ctx := context.Background()

	access, err := kr.GetOrCreate(ctx, token.KindAccess)
	if err != nil {
		t.Fatalf("GetOrCreate access: %v", err)
	}
	refresh, err := kr.GetOrCreate(ctx, token.KindRefresh)
	if err != nil {
		t.Fatalf("GetOrCreate refresh: %v", err)
	}
	if bytes.Equal(access, refresh) {
		t.Fatalf("access and refresh secrets must be independent")
	}
}

func TestSecretSurvivesNewKeyring(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	first, err := New(kv).GetOrCreate(ctx, token.KindRefresh)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, err := New(kv).GetOrCreate(ctx, token.KindRefresh)
	if err != nil {
		t.Fatalf("GetOrCreate on fresh keyring: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("persisted secret was not reused")
	}
}

type failingKV struct{ err error }

func (f failingKV) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingKV) Put(context.Context, string, []byte) error         { return f.err }

func TestStoreFailurePropagates(t *testing.T) {
	wantErr := errors.New("store down")
	kr := New(failingKV{err: wantErr})
	if _, err := kr.GetOrCreate(context.Background(), token.KindAccess); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
