package database

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// defaultIdleTTL is how long an untouched cache entry survives before the
// column cache expires it, independent of capacity pressure. Per-column
// data that's merely large but cold (old blocks, settled receipts) is
// evicted on idleness rather than waiting for an LRU capacity collision.
const defaultIdleTTL = 5 * time.Minute

// columnCache is the per-column idle-expiring LRU sitting in front of the
// backend, per spec.md §4's cache-wrapper contract: get/exists populate on
// miss, put/delete write through, iteration bypasses it entirely. A cached
// nil value records a confirmed miss so repeated lookups for an absent key
// don't keep hitting the backend.
type columnCache struct {
	perColumn [numColumns]*expirable.LRU[string, []byte]
}

func newColumnCache(size int) *columnCache {
	c := &columnCache{}
	if size <= 0 {
		return c
	}
	for i := range c.perColumn {
		c.perColumn[i] = expirable.NewLRU[string, []byte](size, nil, defaultIdleTTL)
	}
	return c
}

func (c *columnCache) get(col Column, key []byte) (value []byte, ok bool) {
	lru := c.perColumn[col]
	if lru == nil {
		return nil, false
	}
	return lru.Get(string(key))
}

func (c *columnCache) put(col Column, key, value []byte) {
	lru := c.perColumn[col]
	if lru == nil {
		return
	}
	lru.Add(string(key), value)
}
