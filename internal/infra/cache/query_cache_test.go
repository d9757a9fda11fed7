//go:build !integration

package cache

import (
	"fmt"
	"testing"
	"time"

	"invoice-ai-platform/internal/domain/model"
)

func TestQueryCache_Key(t *testing.T) {
	a := Key("  VAT Thresholds ", model.SearchOptions{MaxResults: 5})
	b := Key("vat thresholds", model.SearchOptions{MaxResults: 5})
	if a != b {
		t.Errorf("expected case/whitespace-insensitive keys, got %q vs %q", a, b)
	}

	c := Key("vat thresholds", model.SearchOptions{MaxResults: 10})
	if a == c {
		t.Error("expected different options to produce different keys")
	}
}

func TestQueryCache_GetSet(t *testing.T) {
	c := New[string]("test", 10, time.Minute)

	if _, ok := c.Get("q", model.SearchOptions{}); ok {
		t.Fatal("expected a miss on an empty cache")
	}

	c.Set("q", model.SearchOptions{}, "v1")
	got, ok := c.Get("q", model.SearchOptions{})
	if !ok || got != "v1" {
		t.Fatalf("expected hit with v1, got %q (%v)", got, ok)
	}

	// Overwrite under the same key.
	c.Set("q", model.SearchOptions{}, "v2")
	got, _ = c.Get("q", model.SearchOptions{})
	if got != "v2" {
		t.Errorf("expected overwrite to win, got %q", got)
	}
	if c.Size() != 1 {
		t.Errorf("expected a single entry after overwrite, got %d", c.Size())
	}
}

func TestQueryCache_LRUEviction(t *testing.T) {
	c := New[int]("test", 3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("q%d", i), model.SearchOptions{}, i)
	}

	// Touch q0 so q1 becomes the least recently used.
	if _, ok := c.Get("q0", model.SearchOptions{}); !ok {
		t.Fatal("expected q0 present")
	}

	c.Set("q3", model.SearchOptions{}, 3)

	if _, ok := c.Get("q1", model.SearchOptions{}); ok {
		t.Error("expected the least recently used entry to be evicted")
	}
	for _, q := range []string{"q0", "q2", "q3"} {
		if _, ok := c.Get(q, model.SearchOptions{}); !ok {
			t.Errorf("expected %s to survive eviction", q)
		}
	}
	if c.Size() != 3 {
		t.Errorf("expected size pinned at capacity, got %d", c.Size())
	}
}

func TestQueryCache_TTLExpiry(t *testing.T) {
	c := New[string]("test", 10, time.Minute)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("q", model.SearchOptions{}, "v")

	current = current.Add(30 * time.Second)
	if _, ok := c.Get("q", model.SearchOptions{}); !ok {
		t.Fatal("expected entry alive within the TTL")
	}

	current = current.Add(31 * time.Second)
	if _, ok := c.Get("q", model.SearchOptions{}); ok {
		t.Fatal("expected entry expired past the TTL")
	}
	if c.Size() != 0 {
		t.Errorf("expected the lazy purge to drop the entry, got size %d", c.Size())
	}
}

func TestQueryCache_Cleanup(t *testing.T) {
	c := New[string]("test", 10, time.Minute)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("old1", model.SearchOptions{}, "v")
	c.Set("old2", model.SearchOptions{}, "v")

	current = current.Add(2 * time.Minute)
	c.Set("fresh", model.SearchOptions{}, "v")

	if removed := c.Cleanup(); removed != 2 {
		t.Errorf("expected 2 expired entries removed, got %d", removed)
	}
	if removed := c.Cleanup(); removed != 0 {
		t.Errorf("expected nothing left to clean, got %d", removed)
	}
	if c.Size() != 1 {
		t.Errorf("expected only the fresh entry to remain, got %d", c.Size())
	}
	if _, ok := c.Get("fresh", model.SearchOptions{}); !ok {
		t.Error("expected the fresh entry to survive cleanup")
	}
}

func TestQueryCache_Stats(t *testing.T) {
	c := New[string]("test", 10, time.Minute)

	c.Set("q", model.SearchOptions{}, "v")
	c.Get("q", model.SearchOptions{})    // hit
	c.Get("q", model.SearchOptions{})    // hit
	c.Get("miss", model.SearchOptions{}) // miss

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("expected 2 hits / 1 miss, got %d/%d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.67 {
		t.Errorf("expected hit rate rounded to 0.67, got %v", stats.HitRate)
	}
	if stats.Size != 1 || stats.MaxSize != 10 {
		t.Errorf("unexpected size stats: %+v", stats)
	}

	c.Clear()
	stats = c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.HitRate != 0 || stats.Size != 0 {
		t.Errorf("expected counters reset after Clear, got %+v", stats)
	}
}
