package memorystore

import (
	"sync"
	"testing"
)

func TestSetGetDelete(t *testing.T) {
	store := NewPresenceStore()

	if _, ok := store.Get("conn-1"); ok {
		t.Error("Get() found entry in empty store")
	}

	store.Set("conn-1", "alice")
	if name, ok := store.Get("conn-1"); !ok || name != "alice" {
		t.Errorf("Get() = (%q, %v), want (alice, true)", name, ok)
	}

	// Display names are free text, not unique.
	store.Set("conn-2", "alice")
	if name, _ := store.Get("conn-2"); name != "alice" {
		t.Errorf("Get() = %q, want alice", name)
	}

	store.Delete("conn-1")
	if _, ok := store.Get("conn-1"); ok {
		t.Error("entry survived Delete()")
	}

	// Deleting a missing entry is a no-op.
	store.Delete("conn-1")
}

func TestOverwrite(t *testing.T) {
	store := NewPresenceStore()

	store.Set("conn-1", "alice")
	store.Set("conn-1", "alice2")
	if name, _ := store.Get("conn-1"); name != "alice2" {
		t.Errorf("Get() = %q, want alice2", name)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewPresenceStore()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			store.Set(id, "user")
			store.Get(id)
			store.Delete(id)
		}(i)
	}
	wg.Wait()
}
