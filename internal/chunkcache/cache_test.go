package chunkcache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/selphi-project/srp/internal/sparsematrix"
)

type countingLoader struct {
	mu    sync.Mutex
	calls map[int]int
}

func newCountingLoader() *countingLoader {
	return &countingLoader{calls: make(map[int]int)}
}

func (l *countingLoader) Read(chunkID int) (sparsematrix.RawCSC, error) {
	l.mu.Lock()
	l.calls[chunkID]++
	l.mu.Unlock()
	return sparsematrix.NewCSC(1, 1, []int{0, 0}, nil)
}

func (l *countingLoader) count(chunkID int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[chunkID]
}

func TestGetCachesAndEvictsLRU(t *testing.T) {
	loader := newCountingLoader()
	cache, err := New(loader, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Access order 0,1,2,3,0 against a capacity-2 cache: by the time 0 is
	// asked for again, both 0 and 1 have been evicted, so it reloads.
	for _, id := range []int{0, 1, 2, 3, 0} {
		if _, err := cache.Get(id); err != nil {
			t.Fatalf("Get(%d): %v", id, err)
		}
	}

	if got := loader.count(0); got != 2 {
		t.Errorf("loader.count(0) = %d, want 2 (reloaded after eviction)", got)
	}
	if got := loader.count(3); got != 1 {
		t.Errorf("loader.count(3) = %d, want 1", got)
	}
	if cache.Len() != 2 {
		t.Errorf("cache.Len() = %d, want 2", cache.Len())
	}
}

func TestGetHitAvoidsReload(t *testing.T) {
	loader := newCountingLoader()
	cache, err := New(loader, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := cache.Get(5); err != nil {
		t.Fatalf("Get(5): %v", err)
	}
	if _, err := cache.Get(5); err != nil {
		t.Fatalf("Get(5) second call: %v", err)
	}
	if got := loader.count(5); got != 1 {
		t.Errorf("loader.count(5) = %d, want 1 (second Get should hit cache)", got)
	}
}

func TestGetDeduplicatesConcurrentLoads(t *testing.T) {
	loader := newCountingLoader()
	cache, err := New(loader, DefaultCapacity)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var wg sync.WaitGroup
	var errCount int32
	const n = 20
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := cache.Get(7); err != nil {
				atomic.AddInt32(&errCount, 1)
			}
		}()
	}
	wg.Wait()

	if errCount != 0 {
		t.Fatalf("%d concurrent Get(7) calls errored", errCount)
	}
	if got := loader.count(7); got != 1 {
		t.Errorf("loader.count(7) = %d, want 1 (singleflight should collapse concurrent misses)", got)
	}
}

func TestPurge(t *testing.T) {
	loader := newCountingLoader()
	cache, _ := New(loader, DefaultCapacity)
	cache.Get(1)
	cache.Purge()
	if cache.Len() != 0 {
		t.Errorf("cache.Len() after Purge = %d, want 0", cache.Len())
	}
	cache.Get(1)
	if got := loader.count(1); got != 2 {
		t.Errorf("loader.count(1) after Purge+Get = %d, want 2", got)
	}
}
