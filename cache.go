package adblock

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/traychrome/adblock/filterlist"
)

// cacheEntry is a cached decision together with the rules it was made with.
type cacheEntry struct {
	snap *filterlist.Snapshot
	res  Result
}

// decisionCache is an LRU cache of decisions keyed by request URI.  Entries
// made with a different snapshot of the rules are treated as misses.  A nil
// *decisionCache is a disabled cache.
type decisionCache struct {
	lru *lru.Cache[string, cacheEntry]
}

// newDecisionCache returns a cache with the given capacity or nil if size is
// not positive.
func newDecisionCache(size int) (c *decisionCache, err error) {
	if size <= 0 {
		return nil, nil
	}

	l, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}

	return &decisionCache{lru: l}, nil
}

// get returns the decision for uri made with snap.
func (c *decisionCache) get(snap *filterlist.Snapshot, uri string) (res Result, ok bool) {
	if c == nil {
		return Result{}, false
	}

	e, ok := c.lru.Get(uri)
	if !ok || e.snap != snap {
		return Result{}, false
	}

	return e.res, true
}

// set stores the decision for uri made with snap.
func (c *decisionCache) set(snap *filterlist.Snapshot, uri string, res Result) {
	if c == nil {
		return
	}

	c.lru.Add(uri, cacheEntry{snap: snap, res: res})
}

// purge removes all entries.
func (c *decisionCache) purge() {
	if c == nil {
		return
	}

	c.lru.Purge()
}

// len returns the number of cached entries.
func (c *decisionCache) len() (n int) {
	if c == nil {
		return 0
	}

	return c.lru.Len()
}
