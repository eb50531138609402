package cache

import (
	"testing"

	"github.com/penwyp/go-fleet-replay/internal/core/model"
)

func newTestCache(capacity int) *PageCache {
	pc := NewPageCache(capacity)
	var tick int64
	pc.clock = func() int64 {
		tick++
		return tick
	}
	return pc
}

func TestPageCacheSetAndGet(t *testing.T) {
	pc := newTestCache(2)
	page := &model.Page{Index: 0, Start: 0, End: 10, Entries: []model.ChangeEntry{{Time: 0}}}

	pc.Set("0-10_1.json", page)

	got, ok := pc.Get("0-10_1.json")
	if !ok {
		t.Fatal("Expected to find cached page")
	}
	if got != page {
		t.Error("Expected the same page pointer back")
	}

	if _, ok := pc.Get("missing.json"); ok {
		t.Error("Expected miss for unknown key")
	}

	hits, misses := pc.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %d/%d", hits, misses)
	}
}

func TestPageCacheEvictsLeastRecentlyAccessed(t *testing.T) {
	pc := newTestCache(2)

	pc.Set("a", &model.Page{Index: 0})
	pc.Set("b", &model.Page{Index: 1})

	// touch a so b becomes the oldest
	pc.Get("a")
	pc.Set("c", &model.Page{Index: 2})

	if pc.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", pc.Len())
	}
	if _, ok := pc.Get("b"); ok {
		t.Error("Expected b to be evicted")
	}
	if _, ok := pc.Get("a"); !ok {
		t.Error("Expected a to survive eviction")
	}
	if _, ok := pc.Get("c"); !ok {
		t.Error("Expected c to be cached")
	}
}

func TestPageCacheInvalidateAndClear(t *testing.T) {
	pc := newTestCache(4)
	pc.Set("a", &model.Page{})
	pc.Set("b", &model.Page{})

	pc.Invalidate("a")
	if _, ok := pc.Get("a"); ok {
		t.Error("Expected a to be invalidated")
	}

	pc.Clear()
	if pc.Len() != 0 {
		t.Errorf("Expected empty cache after clear, got %d", pc.Len())
	}

	pc.Set("c", &model.Page{})
	if pc.Len() != 1 {
		t.Errorf("Expected cache to be usable after clear, got %d entries", pc.Len())
	}
}

func TestPageCacheMinimumCapacity(t *testing.T) {
	pc := newTestCache(0)
	pc.Set("a", &model.Page{})
	pc.Set("b", &model.Page{})
	if pc.Len() != 1 {
		t.Errorf("Expected capacity to be clamped to 1, got %d entries", pc.Len())
	}
}
