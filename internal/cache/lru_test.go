package cache

import (
	"testing"
	"time"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("empty cache should miss")
	}
	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	c.Set("a", "alpha2")
	if got, _ := c.Get("a"); got != "alpha2" {
		t.Fatalf("overwrite: Get = %q", got)
	}
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("c should be present")
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry should miss")
	}
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("CleanExpired = %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d after cleanup", c.Size())
	}
}

func TestLRUCache_Purge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Purge()

	if c.Size() != 0 {
		t.Fatalf("Size = %d after purge", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("purged entry should miss")
	}

	// The cache stays usable after a purge.
	c.Set("c", 3)
	if got, ok := c.Get("c"); !ok || got != 3 {
		t.Fatalf("Get after purge = %d, %v", got, ok)
	}
}

func TestLRUCache_Delete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("never-existed")
	if _, ok := c.Get("a"); ok {
		t.Fatal("deleted entry should miss")
	}
}
