package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(8)

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	if err := m.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v" {
		t.Errorf("got %q, want %q", got, "v")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(8)

	now := time.Now()
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, err := m.Get(ctx, "k"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("after expiry: got %v, want ErrNotFound", err)
	}
}

func TestMemoryLRUEviction(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	m.Set(ctx, "a", "1", 0)
	m.Set(ctx, "b", "2", 0)

	// Touch "a" so "b" becomes the eviction candidate.
	m.Get(ctx, "a")
	m.Set(ctx, "c", "3", 0)

	if _, err := m.Get(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("b should have been evicted, got %v", err)
	}
	if _, err := m.Get(ctx, "a"); err != nil {
		t.Errorf("a should survive: %v", err)
	}
	if _, err := m.Get(ctx, "c"); err != nil {
		t.Errorf("c should be present: %v", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(8)

	m.Set(ctx, "k", "v", 0)
	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestLayeredBackfill(t *testing.T) {
	ctx := context.Background()
	local := NewMemory(8)
	remote := NewMemory(8)
	layered := NewLayered(local, remote)

	remote.Set(ctx, "pool", "0xdead", 0)

	got, err := layered.Get(ctx, "pool")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "0xdead" {
		t.Errorf("got %q, want %q", got, "0xdead")
	}

	// The local layer must now serve the key on its own.
	if _, err := local.Get(ctx, "pool"); err != nil {
		t.Errorf("local backfill missing: %v", err)
	}
}

func TestLayeredBackfillExpires(t *testing.T) {
	ctx := context.Background()
	local := NewMemory(8)
	remote := NewMemory(8)
	layered := NewLayered(local, remote)

	now := time.Now()
	local.now = func() time.Time { return now }

	remote.Set(ctx, "gasprice", "42", 0)
	if _, err := layered.Get(ctx, "gasprice"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	// The backfilled copy must not outlive backfillTTL even though the
	// remote entry has no expiry.
	now = now.Add(backfillTTL + time.Second)
	if _, err := local.Get(ctx, "gasprice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("backfilled entry should expire locally, got %v", err)
	}
}

func TestLayeredNilRemote(t *testing.T) {
	ctx := context.Background()
	layered := NewLayered(NewMemory(8), nil)

	if err := layered.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := layered.Get(ctx, "k"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := layered.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
