package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.now)

	c.Set("a", 1)
	c.Set("b", 2)
	clock.advance(30 * time.Second)
	c.Set("b", 3)
	clock.advance(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != 3 {
		t.Fatalf("Get(b) = %d, %v", v, ok)
	}

	clock.advance(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCachePurgeAndDelete(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if c.Size() != 1 {
		t.Fatalf("maxSize 0 should behave as 1, got size %d", c.Size())
	}
	c.Delete("b")
	if c.Size() != 0 {
		t.Fatalf("Size() after Delete = %d", c.Size())
	}

	c.Set("c", 3)
	c.Purge()
	if _, ok := c.Get("c"); ok || c.Size() != 0 {
		t.Fatal("Purge should drop every entry")
	}
}

func TestManagerCleanNow(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	a := NewLRUCache[int](10, time.Second).WithClock(clock.now)
	b := NewLRUCache[int](10, time.Hour).WithClock(clock.now)
	a.Set("x", 1)
	b.Set("y", 2)

	m := NewManager()
	m.Register(a)
	m.Register(b)
	m.StartCleanup(time.Hour)
	defer m.Stop()

	clock.advance(time.Minute)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow() = %d, want 1", n)
	}
}
