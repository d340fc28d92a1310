package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *snapshotStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "snapshots.db")
	return NewSnapshotStore(dsn).(*snapshotStore)
}

func TestCreateAndGetSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSnapshot(ctx, "room-1", "checkpoint", "alice", "line one\nline two")
	if err != nil {
		t.Fatalf("CreateSnapshot() failed: %v", err)
	}
	if len(id) != 26 {
		t.Errorf("id length = %d, want 26 (ULID)", len(id))
	}

	snapshot, err := store.GetSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("GetSnapshot() failed: %v", err)
	}
	if snapshot.RoomID != "room-1" || snapshot.Name != "checkpoint" || snapshot.CreatedBy != "alice" {
		t.Errorf("snapshot metadata = %+v", snapshot)
	}
	if snapshot.Buffer != "line one\nline two" {
		t.Errorf("snapshot.Buffer = %q, want original buffer", snapshot.Buffer)
	}
}

func TestGetSnapshot_NotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetSnapshot(context.Background(), "nosuch"); err == nil {
		t.Error("GetSnapshot() succeeded for unknown id")
	}
}

func TestListSnapshots_FiltersAndOmitsBuffer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.CreateSnapshot(ctx, "room-1", "a", "alice", "aaa")
	store.CreateSnapshot(ctx, "room-1", "b", "bob", "bbb")
	store.CreateSnapshot(ctx, "room-2", "c", "carol", "ccc")

	list, err := store.ListSnapshots(ctx, "room-1")
	if err != nil {
		t.Fatalf("ListSnapshots() failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListSnapshots() returned %d entries, want 2", len(list))
	}
	for _, snapshot := range list {
		if snapshot.RoomID != "room-1" {
			t.Errorf("listing leaked snapshot from room %q", snapshot.RoomID)
		}
		if snapshot.Buffer != "" {
			t.Error("listing must not carry buffers")
		}
	}
}

func TestDeleteSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, _ := store.CreateSnapshot(ctx, "room-1", "doomed", "alice", "x")
	if err := store.DeleteSnapshot(ctx, id); err != nil {
		t.Fatalf("DeleteSnapshot() failed: %v", err)
	}
	if _, err := store.GetSnapshot(ctx, id); err == nil {
		t.Error("snapshot still retrievable after delete")
	}
}

func TestSnapshotPersistsAcrossReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "snapshots.db")
	ctx := context.Background()

	first := NewSnapshotStore(dsn)
	id, err := first.CreateSnapshot(ctx, "room-1", "durable", "alice", "kept")
	if err != nil {
		t.Fatalf("CreateSnapshot() failed: %v", err)
	}

	second := NewSnapshotStore(dsn)
	snapshot, err := second.GetSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("GetSnapshot() after reopen failed: %v", err)
	}
	if snapshot.Buffer != "kept" {
		t.Errorf("snapshot.Buffer = %q, want %q", snapshot.Buffer, "kept")
	}
}
