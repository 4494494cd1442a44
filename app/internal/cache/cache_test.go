package cache

import (
	"testing"
	"time"
)

func TestNew_NonPositiveTTLDisables(t *testing.T) {
	c := New[int](0)
	if c != nil {
		t.Fatal("expected nil cache for zero TTL")
	}
	// nil cache is usable
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Error("nil cache should never hit")
	}
	c.Stop()
}

func TestSetGet(t *testing.T) {
	c := New[string](time.Minute)
	defer c.Stop()

	c.Set("key", "value")
	v, ok := c.Get("key")
	if !ok || v != "value" {
		t.Errorf("Get = %q, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("missing key should not hit")
	}
}

func TestGet_Expired(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Stop()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Set("k", 7)

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry should not be returned")
	}
}

func TestStop_Twice(t *testing.T) {
	c := New[int](time.Minute)
	c.Stop()
	c.Stop()
}
