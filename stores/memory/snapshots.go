package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"codeshare-server/core"
)

type snapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]core.Snapshot
}

func NewSnapshotStore() core.SnapshotStore {
	return &snapshotStore{snapshots: make(map[string]core.Snapshot)}
}

func (s *snapshotStore) CreateSnapshot(ctx context.Context, roomID, name, createdBy, buffer string) (string, error) {
	id := ulid.Make().String()
	snapshot := core.Snapshot{
		ID:        id,
		RoomID:    roomID,
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UnixMilli(),
		Buffer:    buffer,
	}

	s.mu.Lock()
	s.snapshots[id] = snapshot
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"snapshot_id": id,
		"room_id":     roomID,
		"buffer_len":  len(buffer),
	}).Info("Snapshot created")

	return id, nil
}

func (s *snapshotStore) GetSnapshot(ctx context.Context, id string) (*core.Snapshot, error) {
	s.mu.RLock()
	snapshot, ok := s.snapshots[id]
	s.mu.RUnlock()

	if !ok {
		logrus.WithField("snapshot_id", id).Warn("Snapshot with specified ID not found")
		return nil, fmt.Errorf("snapshot with id %s not found", id)
	}
	return &snapshot, nil
}

func (s *snapshotStore) ListSnapshots(ctx context.Context, roomID string) ([]core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]core.Snapshot, 0)
	for _, snapshot := range s.snapshots {
		if snapshot.RoomID != roomID {
			continue
		}
		// Listings carry metadata only.
		snapshot.Buffer = ""
		list = append(list, snapshot)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt == list[j].CreatedAt {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt > list[j].CreatedAt
	})

	return list, nil
}

func (s *snapshotStore) DeleteSnapshot(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.snapshots, id)
	s.mu.Unlock()
	return nil
}
