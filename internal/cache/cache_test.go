package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New(ttl)
	c.now = clock.Now
	return c, clock
}

func TestCache_GetExpires(t *testing.T) {
	c, clock := newTestCache(time.Minute)

	c.Set("k", "v")

	if v, ok := c.Get("k"); !ok || v.(string) != "v" {
		t.Fatalf("expected hit, got %v %v", v, ok)
	}

	clock.Advance(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be removed, len=%d", c.Len())
	}
}

func TestCache_TakeIsSingleUse(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set("token", 7)

	if v, ok := c.Take("token"); !ok || v.(int) != 7 {
		t.Fatalf("expected first take to succeed, got %v %v", v, ok)
	}
	if _, ok := c.Take("token"); ok {
		t.Fatalf("expected second take to miss")
	}
}

func TestCache_TakeExpired(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	c.Set("token", 7)
	clock.Advance(time.Hour)

	if _, ok := c.Take("token"); ok {
		t.Fatalf("expected expired take to miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expected take to remove the expired entry")
	}
}

func TestCache_TouchAndSweep(t *testing.T) {
	c, clock := newTestCache(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(30 * time.Second)

	if !c.Touch("a", time.Hour) {
		t.Fatalf("expected touch on live key to succeed")
	}

	clock.Advance(time.Minute)

	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept entry, got %d", removed)
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected touched key to survive")
	}
	if c.Touch("b", time.Hour) {
		t.Fatalf("expected touch on swept key to fail")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set("k", i)
			c.Get("k")
			c.Take("k")
		}(i)
	}
	wg.Wait()
}
