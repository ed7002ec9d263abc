package cache

import (
	"testing"
	"time"
)

func TestLRUCacheSetAndGet(t *testing.T) {
	c, err := NewLRU(10, 100, 60*time.Second)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("run:abc", []byte(`{"forces":[[0,0,0]]}`), 0)

	got, found := c.Get("run:abc")
	if !found {
		t.Fatal("Expected to find cached value")
	}
	if string(got) != `{"forces":[[0,0,0]]}` {
		t.Errorf("Unexpected cached value: %s", got)
	}
}

func TestLRUCacheGetMissing(t *testing.T) {
	c, err := NewLRU(10, 100, 60*time.Second)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	if _, found := c.Get("run:absent"); found {
		t.Error("Expected miss for absent key")
	}
}

func TestLRUCacheExpiration(t *testing.T) {
	c, err := NewLRU(10, 100, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("run:short", []byte("x"), 100*time.Millisecond)

	if _, found := c.Get("run:short"); !found {
		t.Error("Expected value right after set")
	}

	time.Sleep(150 * time.Millisecond)

	if _, found := c.Get("run:short"); found {
		t.Error("Expected value to be expired")
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c, err := NewLRU(10, 100, 60*time.Second)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("run:del", []byte("x"), 0)
	c.Delete("run:del")

	if _, found := c.Get("run:del"); found {
		t.Error("Expected value to be deleted")
	}
}

func TestLRUCacheClear(t *testing.T) {
	c, err := NewLRU(10, 100, 60*time.Second)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("run:a", []byte("1"), 0)
	c.Set("run:b", []byte("2"), 0)
	c.Clear()

	if _, found := c.Get("run:a"); found {
		t.Error("Expected run:a to be cleared")
	}
	if _, found := c.Get("run:b"); found {
		t.Error("Expected run:b to be cleared")
	}
}

func TestLRUCacheStats(t *testing.T) {
	c, err := NewLRU(10, 100, 60*time.Second)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("run:a", []byte("1"), 0)
	if _, found := c.Get("run:a"); !found {
		t.Fatal("Expected to find run:a")
	}
	c.Get("run:missing")

	stats := c.Stats()
	if stats.Hits == 0 {
		t.Error("Expected at least one recorded hit")
	}
	if stats.Misses == 0 {
		t.Error("Expected at least one recorded miss")
	}
}
