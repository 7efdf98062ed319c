package keyring

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"tillgate.dev/internal/token"
)

const secretLen = 64

// KV is the process-wide persistent key-value store backing signing secrets.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Keyring lazily creates and caches one signing secret per token kind.
// Secrets are persisted on first creation and never rotated; rotating a
// secret would invalidate every outstanding token of that kind.
type Keyring struct {
	kv KV

	mu     sync.Mutex
	cached map[token.Kind][]byte
}

// New constructs a Keyring over the given store.
func New(kv KV) *Keyring {
	return &Keyring{kv: kv, cached: make(map[token.Kind][]byte)}
}

// GetOrCreate returns the signing secret for kind, generating and persisting
// a fresh 64-byte random secret on first use. A persistence failure is a
// configuration error: the service cannot operate without its secrets.
func (k *Keyring) GetOrCreate(ctx context.Context, kind token.Kind) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if secret, ok := k.cached[kind]; ok {
		return secret, nil
	}

	key := storageKey(kind)
	secret, ok, err := k.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("keyring: load %s secret: %w", kind, err)
	}
	if !ok {
		secret = make([]byte, secretLen)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("keyring: generate %s secret: %w", kind, err)
		}
		if err := k.kv.Put(ctx, key, secret); err != nil {
			return nil, fmt.Errorf("keyring: persist %s secret: %w", kind, err)
		}
		// Re-read after the write: a concurrent creator may have won the
		// insert, and every server must settle on the same secret.
		stored, ok, err := k.kv.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("keyring: reload %s secret: %w", kind, err)
		}
		if ok {
			secret = stored
		}
	}
	k.cached[kind] = secret
	return secret, nil
}

func storageKey(kind token.Kind) string {
	return "auth_signing_secret_" + string(kind)
}
