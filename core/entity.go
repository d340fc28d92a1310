package core

import (
	"context"
	"errors"
)

// ErrRoomNotFound is returned when a room id does not resolve to a live room.
var ErrRoomNotFound = errors.New("room not found")

// ErrNotInRoom is returned when a connection is not attached to any room.
var ErrNotInRoom = errors.New("connection not in a room")

type (
	// Room is the public view of a live collaboration session.
	Room struct {
		ID      string
		Members int
	}

	// EditOperation is a range-addressed replacement against a room's buffer.
	// Coordinates are 1-based and expressed in the sender's view of the
	// buffer; columns count runes, not bytes.
	EditOperation struct {
		Text        string `json:"text"`
		StartLine   int    `json:"startLine"`
		StartColumn int    `json:"startColumn"`
		EndLine     int    `json:"endLine"`
		EndColumn   int    `json:"endColumn"`
	}

	// Cursor is transient per-user position state. Selection fields are zero
	// when the user has no selection.
	Cursor struct {
		PositionLine         int `json:"positionLine"`
		PositionColumn       int `json:"positionColumn"`
		SelectionStartLine   int `json:"selectionStartLine,omitempty"`
		SelectionStartColumn int `json:"selectionStartColumn,omitempty"`
		SelectionEndLine     int `json:"selectionEndLine,omitempty"`
		SelectionEndColumn   int `json:"selectionEndColumn,omitempty"`
	}

	// SignalEnvelope carries an opaque peer-signaling payload. From is always
	// derived from the sending connection, never client-supplied.
	SignalEnvelope struct {
		From    string `json:"from"`
		Payload any    `json:"payload,omitempty"`
	}

	// MembershipUpdate is a full membership snapshot of one room, computed
	// atomically with the join/leave that triggered it. Recipients lists the
	// connection ids the snapshot must be delivered to.
	MembershipUpdate struct {
		RoomID     string
		Members    map[string]string
		Recipients []string
	}

	// Snapshot is a named, durable copy of a room's buffer.
	Snapshot struct {
		ID        string `json:"id"`
		RoomID    string `json:"room_id"`
		Name      string `json:"name"`
		CreatedBy string `json:"created_by"`
		CreatedAt int64  `json:"created_at"`
		Buffer    string `json:"buffer,omitempty"`
	}

	// PresenceStore owns the connection id to display name mapping. The room
	// registry is its only writer.
	PresenceStore interface {
		Set(connectionID, displayName string)
		Get(connectionID string) (string, bool)
		Delete(connectionID string)
	}

	// Emitter delivers one named event to one connection. Delivery is
	// fire-and-forget; a slow receiver must never block the caller.
	Emitter interface {
		Emit(connectionID, event string, payload any)
	}

	// MembershipListener receives membership snapshots from the registry.
	MembershipListener interface {
		MembershipChanged(update MembershipUpdate)
	}

	// RoomDirectory answers "who is in which room" without exposing the
	// registry's mutation surface.
	RoomDirectory interface {
		RoomOf(connectionID string) (string, bool)
		MembersOf(roomID string) []string
	}

	// SnapshotStore persists named buffer snapshots. Rooms themselves are
	// ephemeral; snapshots are the only durable state in the system.
	SnapshotStore interface {
		CreateSnapshot(ctx context.Context, roomID, name, createdBy, buffer string) (string, error)
		GetSnapshot(ctx context.Context, id string) (*Snapshot, error)
		ListSnapshots(ctx context.Context, roomID string) ([]Snapshot, error)
		DeleteSnapshot(ctx context.Context, id string) error
	}
)

// HasSelection reports whether the cursor carries a non-empty selection.
func (c Cursor) HasSelection() bool {
	return c.SelectionStartLine != 0 || c.SelectionEndLine != 0
}
