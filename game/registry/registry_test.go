package registry

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestRegistry_Allocate(t *testing.T) {
	reg := New()

	id := reg.Allocate()
	if len(id) != 36 {
		t.Errorf("Expected 36-character id, got %d characters (%q)", len(id), id)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("Allocated id is not a valid UUID: %v", err)
	}
	if parsed.Version() != 4 {
		t.Errorf("Expected version 4 UUID, got version %d", parsed.Version())
	}

	if reg.Allocated() != 1 {
		t.Errorf("Expected 1 allocated id, got %d", reg.Allocated())
	}
}

func TestRegistry_ConcurrentAllocateIsUnique(t *testing.T) {
	reg := New()

	const workers = 16
	const perWorker = 500

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, reg.Allocate())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				if seen[id] {
					t.Errorf("Duplicate id allocated: %s", id)
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("Expected %d unique ids, got %d", workers*perWorker, len(seen))
	}
	if reg.Allocated() != workers*perWorker {
		t.Errorf("Expected allocated counter %d, got %d", workers*perWorker, reg.Allocated())
	}
}
