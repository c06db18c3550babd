package cache

import (
	"testing"
	"time"
)

func TestCache_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[string](10 * time.Second)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	if got, ok := c.Get("k"); !ok || got != "v" {
		t.Fatalf("expected hit, got %q %v", got, ok)
	}

	now = now.Add(11 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after ttl")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be evicted, len=%d", c.Len())
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}

	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected miss after clear")
	}
}
