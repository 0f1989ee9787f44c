package legendre

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store persists coefficient tables across process restarts. Get reports a
// miss with ok == false; Put must be idempotent, as concurrent processes can
// race to store the same degree. Implementations need not be transactional:
// the cache treats every store failure as a miss and recomputes.
type Store interface {
	Get(l int) (*Table, bool, error)
	Put(l int, t *Table) error
}

// Cache memoizes derived tables in memory and optionally in a Store.
// A nil Store gives a process-local cache. All methods are safe for
// concurrent use, and concurrent lookups of one degree derive at most once.
type Cache struct {
	store Store
	log   *zap.Logger

	mu     sync.RWMutex
	tables map[int]*Table

	flight singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger routes cache diagnostics to log. The default discards them.
func WithLogger(log *zap.Logger) CacheOption {
	return func(c *Cache) { c.log = log }
}

// NewCache returns a Cache backed by store, which may be nil.
func NewCache(store Store, opts ...CacheOption) *Cache {
	c := &Cache{
		store:  store,
		log:    zap.NewNop(),
		tables: make(map[int]*Table),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the table for degree l, deriving and persisting it on a
// miss. Tables are shared: callers must treat the result as immutable.
func (c *Cache) Lookup(l int) (*Table, error) {
	if l < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDegree, l)
	}

	c.mu.RLock()
	t := c.tables[l]
	c.mu.RUnlock()
	if t != nil {
		return t, nil
	}

	v, err, _ := c.flight.Do(strconv.Itoa(l), func() (interface{}, error) {
		// A previous flight may have landed between the fast path and here.
		c.mu.RLock()
		t := c.tables[l]
		c.mu.RUnlock()
		if t != nil {
			return t, nil
		}
		t, err := c.load(l)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tables[l] = t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// load fetches l from the store or derives it, writing back on a store miss.
func (c *Cache) load(l int) (*Table, error) {
	if c.store != nil {
		t, ok, err := c.store.Get(l)
		switch {
		case err != nil:
			c.log.Warn("coefficient store read failed, rederiving",
				zap.Int("degree", l), zap.Error(err))
		case ok:
			return t, nil
		}
	}

	start := time.Now()
	t, err := Derive(l)
	if err != nil {
		return nil, err
	}
	c.log.Debug("derived coefficient table",
		zap.Int("degree", l), zap.Duration("took", time.Since(start)))

	if c.store != nil {
		if err := c.store.Put(l, t); err != nil {
			c.log.Warn("coefficient store write failed",
				zap.Int("degree", l), zap.Error(err))
		}
	}
	return t, nil
}

// Prewarm derives and persists every degree up to and including maxL.
func (c *Cache) Prewarm(maxL int) error {
	for l := 0; l <= maxL; l++ {
		if _, err := c.Lookup(l); err != nil {
			return err
		}
	}
	return nil
}
