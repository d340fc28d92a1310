package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	stdlog "log"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"codeshare-server/core"
)

type snapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(dataSourceName string) core.SnapshotStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		stdlog.Fatal(err)
	}

	table := `CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		name TEXT,
		created_by TEXT,
		created_at INTEGER NOT NULL,
		buffer TEXT NOT NULL
	);`
	if _, err := db.Exec(table); err != nil {
		stdlog.Fatal(err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_snapshots_room ON snapshots(room_id, created_at DESC);`); err != nil {
		stdlog.Fatal(err)
	}

	return &snapshotStore{db: db}
}

func (s *snapshotStore) CreateSnapshot(ctx context.Context, roomID, name, createdBy, buffer string) (string, error) {
	id := ulid.Make().String()
	log := logrus.WithFields(logrus.Fields{
		"snapshot_id": id,
		"room_id":     roomID,
		"buffer_len":  len(buffer),
	})

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO snapshots (id, room_id, name, created_by, created_at, buffer) VALUES (?, ?, ?, ?, ?, ?)",
		id, roomID, name, createdBy, time.Now().UnixMilli(), buffer)
	if err != nil {
		log.WithField("error", err).Error("Failed to create snapshot")
		return "", err
	}

	log.Info("Snapshot created")
	return id, nil
}

func (s *snapshotStore) GetSnapshot(ctx context.Context, id string) (*core.Snapshot, error) {
	log := logrus.WithField("snapshot_id", id)
	log.Debug("Retrieving snapshot by ID")

	var snapshot core.Snapshot
	err := s.db.QueryRowContext(ctx,
		"SELECT id, room_id, name, created_by, created_at, buffer FROM snapshots WHERE id = ?", id).
		Scan(&snapshot.ID, &snapshot.RoomID, &snapshot.Name, &snapshot.CreatedBy, &snapshot.CreatedAt, &snapshot.Buffer)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Warn("Snapshot with specified ID not found")
			return nil, fmt.Errorf("snapshot with id %s not found", id)
		}
		log.WithField("error", err).Error("Failed to retrieve snapshot")
		return nil, err
	}

	return &snapshot, nil
}

func (s *snapshotStore) ListSnapshots(ctx context.Context, roomID string) ([]core.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, room_id, name, created_by, created_at FROM snapshots WHERE room_id = ? ORDER BY created_at DESC, id",
		roomID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"room_id": roomID,
			"error":   err,
		}).Error("Failed to list snapshots")
		return nil, err
	}
	defer rows.Close()

	list := make([]core.Snapshot, 0)
	for rows.Next() {
		var snapshot core.Snapshot
		if err := rows.Scan(&snapshot.ID, &snapshot.RoomID, &snapshot.Name, &snapshot.CreatedBy, &snapshot.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, snapshot)
	}
	return list, rows.Err()
}

func (s *snapshotStore) DeleteSnapshot(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"snapshot_id": id,
			"error":       err,
		}).Error("Failed to delete snapshot")
	}
	return err
}
