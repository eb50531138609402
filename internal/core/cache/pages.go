package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/penwyp/go-fleet-replay/internal/core/model"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

// PageCacheEntry is a decoded, validated page kept in memory
type PageCacheEntry struct {
	Page         *model.Page
	LastAccessed int64
	Hits         int
}

// PageCache keeps recently read pages keyed by their file name so scrubbing
// back and forth does not decode the same file again. The least recently
// accessed entry is evicted once capacity is exceeded.
type PageCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*PageCacheEntry
	clock    func() int64

	hits   int
	misses int
}

// NewPageCache creates a cache holding at most capacity pages
func NewPageCache(capacity int) *PageCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &PageCache{
		capacity: capacity,
		entries:  make(map[string]*PageCacheEntry),
		clock:    func() int64 { return time.Now().UnixNano() },
	}
}

func (pc *PageCache) Set(key string, page *model.Page) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.entries[key] = &PageCacheEntry{Page: page, LastAccessed: pc.clock()}
	for len(pc.entries) > pc.capacity {
		pc.evictOldest()
	}
}

func (pc *PageCache) Get(key string) (*model.Page, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	entry, ok := pc.entries[key]
	if !ok {
		pc.misses++
		return nil, false
	}
	pc.hits++
	entry.Hits++
	entry.LastAccessed = pc.clock()
	return entry.Page, true
}

// Invalidate drops one entry
func (pc *PageCache) Invalidate(key string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	delete(pc.entries, key)
}

func (pc *PageCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.entries = make(map[string]*PageCacheEntry)
	util.LogDebug("PageCache: cleared")
}

// Len returns the number of cached pages
func (pc *PageCache) Len() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.entries)
}

// Stats returns hit and miss counts since creation
func (pc *PageCache) Stats() (hits, misses int) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.hits, pc.misses
}

func (pc *PageCache) evictOldest() {
	var oldestKey string
	var oldest int64
	first := true
	for key, entry := range pc.entries {
		if first || entry.LastAccessed < oldest {
			oldestKey = key
			oldest = entry.LastAccessed
			first = false
		}
	}
	delete(pc.entries, oldestKey)
	util.LogDebug(fmt.Sprintf("PageCache: evicted %s", oldestKey))
}
