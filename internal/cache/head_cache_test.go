package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type testKey struct {
	ChainID uint64
	Address string
}

func TestHeadCacheExpiresAfterLag(t *testing.T) {
	c, err := New[testKey, int](Config{Size: 8, MaxHeadLag: 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	c.Advance(100)

	fills := 0
	fill := func() (int, error) {
		fills++
		return fills, nil
	}
	key := testKey{ChainID: 1, Address: "0xabc"}

	if v, _ := c.Get(key, fill); v != 1 {
		t.Fatalf("first value mismatch: %d", v)
	}
	c.Advance(102)
	if v, _ := c.Get(key, fill); v != 1 {
		t.Fatalf("entry within lag must be reused, got %d", v)
	}
	c.Advance(103)
	if v, _ := c.Get(key, fill); v != 2 {
		t.Fatalf("entry beyond lag must be refilled, got %d", v)
	}
	if fills != 2 {
		t.Fatalf("expected 2 fills, got %d", fills)
	}
}

func TestHeadCacheAdvanceIsMonotonic(t *testing.T) {
	c, err := New[string, string](Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	c.Advance(10)
	c.Advance(5)
	if c.Head() != 10 {
		t.Fatalf("head moved backwards: %d", c.Head())
	}
}

func TestHeadCacheDoesNotCacheErrors(t *testing.T) {
	c, err := New[string, bool](Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	calls := 0
	_, err = c.Get("k", func() (bool, error) {
		calls++
		return false, errors.New("rpc down")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	v, err := c.Get("k", func() (bool, error) {
		calls++
		return true, nil
	})
	if err != nil || !v {
		t.Fatalf("second fill mismatch: %v %v", v, err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestHeadCacheSingleFlight(t *testing.T) {
	c, err := New[testKey, string](Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var fills atomic.Int32
	release := make(chan struct{})
	fill := func() (string, error) {
		fills.Add(1)
		<-release
		return "ERC20", nil
	}

	key := testKey{ChainID: 1, Address: "0xdef"}
	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(key, fill)
			if err != nil {
				t.Errorf("get: %v", err)
			}
			results[i] = v
		}(i)
	}
	close(release)
	wg.Wait()

	if fills.Load() != 1 {
		t.Fatalf("expected a single fill, got %d", fills.Load())
	}
	for i, v := range results {
		if v != "ERC20" {
			t.Fatalf("result %d mismatch: %q", i, v)
		}
	}
}
