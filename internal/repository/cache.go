package repository

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

const activeKey = "active"

var _ coupon.Catalog = (*CachedCatalog)(nil)

// CachedCatalog keeps a snapshot of the active coupons of another catalog for
// a fixed TTL. Concurrent refreshes are collapsed into a single load, and a
// failed refresh keeps serving the previous snapshot.
type CachedCatalog struct {
	source coupon.Catalog
	ttl    time.Duration
	now    func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	snapshot *snapshot
	// gen is bumped by Invalidate. A load that started under an older
	// generation must not install its result.
	gen uint64
}

type snapshot struct {
	coupons  []*coupon.Coupon
	byID     map[uuid.UUID]*coupon.Coupon
	loadedAt time.Time
}

// NewCachedCatalog wraps source. A non-positive ttl disables caching but still
// collapses concurrent loads.
func NewCachedCatalog(source coupon.Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{source: source, ttl: ttl, now: time.Now}
}

// Active returns the cached active coupons, refreshing them when stale.
func (c *CachedCatalog) Active(ctx context.Context) ([]*coupon.Coupon, error) {
	s, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.coupons, nil
}

// Get serves active coupons from the snapshot and falls back to the source
// for everything else.
func (c *CachedCatalog) Get(ctx context.Context, id uuid.UUID) (*coupon.Coupon, error) {
	if s, err := c.load(ctx); err == nil {
		if cp, ok := s.byID[id]; ok {
			return cp, nil
		}
	}
	return c.source.Get(ctx, id)
}

// Invalidate drops the snapshot so the next read reloads it. A refresh that
// is already in flight still answers its own callers but is not cached.
func (c *CachedCatalog) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.gen++
	c.mu.Unlock()
	c.group.Forget(activeKey)
}

// Check loads the snapshot if needed and reports whether the catalog is
// reachable.
func (c *CachedCatalog) Check(ctx context.Context) error {
	_, err := c.load(ctx)
	return err
}

func (c *CachedCatalog) fresh() (*snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.snapshot
	if s == nil {
		return nil, false
	}
	return s, c.now().Sub(s.loadedAt) < c.ttl
}

func (c *CachedCatalog) load(ctx context.Context) (*snapshot, error) {
	stale, ok := c.fresh()
	if ok {
		return stale, nil
	}

	v, err, _ := c.group.Do(activeKey, func() (any, error) {
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		// The load is shared by every waiting caller.
		coupons, err := c.source.Active(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		s := &snapshot{
			coupons:  coupons,
			byID:     make(map[uuid.UUID]*coupon.Coupon, len(coupons)),
			loadedAt: c.now(),
		}
		for _, cp := range coupons {
			s.byID[cp.ID] = cp
		}

		c.mu.Lock()
		if c.gen == gen {
			c.snapshot = s
		}
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		if stale != nil {
			zctx.From(ctx).Warn("Catalog refresh failed, serving stale snapshot",
				zap.Error(err),
				zap.Time("loaded_at", stale.loadedAt),
			)
			return stale, nil
		}
		return nil, err
	}
	return v.(*snapshot), nil
}
