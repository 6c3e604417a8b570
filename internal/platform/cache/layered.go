package cache

import (
	"context"
	"errors"
	"time"
)

// backfillTTL bounds how long a remote hit may live in the local layer.
// The remaining remote TTL is not visible through Get, so the local copy
// gets a short lifetime of its own rather than the remote entry's.
const backfillTTL = 30 * time.Second

// Layered reads through a fast local cache before a slower shared one,
// backfilling the local layer on remote hits. Writes go to both layers;
// the remote layer is best effort and its errors are swallowed so an
// unreachable Redis never blocks quoting.
type Layered struct {
	local  Cache
	remote Cache
}

// NewLayered combines a local and a remote cache. remote may be nil, in
// which case Layered degrades to the local cache alone.
func NewLayered(local, remote Cache) *Layered {
	return &Layered{local: local, remote: remote}
}

func (l *Layered) Get(ctx context.Context, key string) (string, error) {
	val, err := l.local.Get(ctx, key)
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	if l.remote == nil {
		return "", ErrNotFound
	}

	val, err = l.remote.Get(ctx, key)
	if err != nil {
		return "", err
	}

	_ = l.local.Set(ctx, key, val, backfillTTL)
	return val, nil
}

func (l *Layered) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := l.local.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if l.remote != nil {
		_ = l.remote.Set(ctx, key, value, ttl)
	}
	return nil
}

func (l *Layered) Delete(ctx context.Context, key string) error {
	err := l.local.Delete(ctx, key)
	if l.remote != nil {
		_ = l.remote.Delete(ctx, key)
	}
	return err
}

func (l *Layered) Close() error {
	err := l.local.Close()
	if l.remote != nil {
		if rerr := l.remote.Close(); err == nil {
			err = rerr
		}
	}
	return err
}
