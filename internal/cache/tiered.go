package cache

import (
	"context"
	"time"
)

// Tiered combines an L1 (in-process) and L2 (shared) cache. Get checks L1
// first, then L2, backfilling L1 on an L2 hit. Set and Delete apply to both.
type Tiered struct {
	l1    Cache
	l2    Cache
	l1TTL time.Duration
}

// DefaultL1TTL is used when NewTiered is given a non-positive l1TTL.
const DefaultL1TTL = 5 * time.Minute

// NewTiered creates a tiered cache. l1TTL bounds how long entries live in
// L1, so URLs deleted from L2 by another instance eventually disappear here.
// L1 entries always expire: a non-positive l1TTL means DefaultL1TTL.
func NewTiered(l1, l2 Cache, l1TTL time.Duration) *Tiered {
	if l1TTL <= 0 {
		l1TTL = DefaultL1TTL
	}
	return &Tiered{l1: l1, l2: l2, l1TTL: l1TTL}
}

// Get checks L1, then L2.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, err := t.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = t.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	// L2 does not report the remaining lifetime, so backfill at the L1 cap.
	_ = t.l1.Set(ctx, key, val, t.localTTL(0))
	return val, true, nil
}

// Set writes to L2 first so L1 never holds a value L2 refused.
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := t.l2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return t.l1.Set(ctx, key, value, t.localTTL(ttl))
}

// Delete removes from both levels.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	if err := t.l1.Delete(ctx, key); err != nil {
		return err
	}
	return t.l2.Delete(ctx, key)
}

// localTTL caps ttl at the L1 lifetime. A zero ttl (no expiry) gets the cap.
func (t *Tiered) localTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > t.l1TTL {
		return t.l1TTL
	}
	return ttl
}
