package blacklist

import (
	"testing"
	"time"
)

func TestPutAndContains(t *testing.T) {
	bl := NewMemory()
	defer bl.Close()

	bl.Put("jti-1", time.Minute)
	if !bl.Contains("jti-1") {
		t.Fatalf("expected jti-1 to be revoked")
	}
	if bl.Contains("jti-2") {
		t.Fatalf("unexpected revocation for jti-2")
	}
}

func TestEntriesExpire(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	bl := NewMemory(WithClock(func() time.Time { return now }))
	defer bl.Close()

	bl.Put("jti-1", 30*time.Second)
	if !bl.Contains("jti-1") {
		t.Fatalf("entry should still be live")
	}

	now = now.Add(31 * time.Second)
	if bl.Contains("jti-1") {
		t.Fatalf("entry should have expired")
	}
	// Lazy expiry also removed it.
	if len(bl.entries) != 0 {
		t.Fatalf("expired entry still stored")
	}
}

func TestZeroAndNegativeTTL(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	bl := NewMemory(WithClock(func() time.Time { return now }))
	defer bl.Close()

	// TTL clamps at zero: the entry must never outlive the clamp.
	bl.Put("zero", 0)
	bl.Put("negative", -time.Hour)
	if bl.Contains("zero") || bl.Contains("negative") {
		t.Fatalf("zero/negative TTL entries must be expired immediately")
	}
}

func TestEmptyKeyIgnored(t *testing.T) {
	bl := NewMemory()
	defer bl.Close()
	bl.Put("", time.Minute)
	if bl.Contains("") {
		t.Fatalf("empty jti must never be revoked")
	}
}
