package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"codeshare-server/core"
)

type snapshotStore struct {
	basePath string
}

// NewSnapshotStore stores each snapshot as one JSON file under basePath.
func NewSnapshotStore(basePath string) core.SnapshotStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		stdlog.Fatalf("failed to create base directory: %v", err)
	}
	return &snapshotStore{basePath: basePath}
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

	log := logrus.WithFields(logrus.Fields{
		"snapshot_id": id,
		"room_id":     roomID,
	})

	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(s.path(id), data, 0644); err != nil {
		log.WithError(err).Error("Failed to write snapshot")
		return "", err
	}

	log.Info("Snapshot created")
	return id, nil
}

func (s *snapshotStore) GetSnapshot(ctx context.Context, id string) (*core.Snapshot, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("snapshot_id", id).Warn("Snapshot with specified ID not found")
			return nil, fmt.Errorf("snapshot with id %s not found", id)
		}
		return nil, err
	}

	var snapshot core.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *snapshotStore) ListSnapshots(ctx context.Context, roomID string) ([]core.Snapshot, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, err
	}

	list := make([]core.Snapshot, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			logrus.WithError(err).Warnf("Failed to read snapshot file %s, skipping", entry.Name())
			continue
		}

		var snapshot core.Snapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			logrus.WithError(err).Warnf("Failed to unmarshal snapshot file %s, skipping", entry.Name())
			continue
		}
		if snapshot.RoomID != roomID {
			continue
		}

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
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *snapshotStore) path(id string) string {
	return filepath.Join(s.basePath, id+".json")
}
