package memorystore

import (
	"sync"

	"codeshare-server/core"
)

type presenceStore struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewPresenceStore returns an in-process presence store. Entries live
// exactly as long as the owning connection; disconnect deletes them.
func NewPresenceStore() core.PresenceStore {
	return &presenceStore{names: make(map[string]string)}
}

func (s *presenceStore) Set(connectionID, displayName string) {
	s.mu.Lock()
	s.names[connectionID] = displayName
	s.mu.Unlock()
}

func (s *presenceStore) Get(connectionID string) (string, bool) {
	s.mu.RLock()
	name, ok := s.names[connectionID]
	s.mu.RUnlock()
	return name, ok
}

func (s *presenceStore) Delete(connectionID string) {
	s.mu.Lock()
	delete(s.names, connectionID)
	s.mu.Unlock()
}
