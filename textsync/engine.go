package textsync

import (
	"github.com/sirupsen/logrus"

	"codeshare-server/core"
)

// BufferRegistry is the slice of the room registry the engine needs: sender
// resolution and serialized access to one room's buffer.
type BufferRegistry interface {
	RoomOf(connectionID string) (string, bool)
	UpdateBuffer(roomID string, fn func(string) string, then func(buffer string)) (string, error)
	Buffer(roomID string) (string, error)
}

// AppliedListener observes every applied edit while its room is still
// serialized. Broadcasting from it therefore preserves the apply order;
// broadcasting after ApplyEdit returns would not.
type AppliedListener func(roomID, senderID string, op core.EditOperation)

// Engine owns edit application. Each edit resolves the sender's room and
// splices the buffer under that room's serialization, so two edits to the
// same room apply in some total order and every member converges on one
// final buffer.
type Engine struct {
	registry BufferRegistry
	applied  AppliedListener
}

func NewEngine(registry BufferRegistry) *Engine {
	return &Engine{registry: registry}
}

// SetAppliedListener wires the edit broadcaster. Must be called before the
// gateway starts accepting connections.
func (e *Engine) SetAppliedListener(l AppliedListener) {
	e.applied = l
}

// ApplyEdit applies op to the sender's room and returns the room id and the
// new canonical buffer. An edit from a connection not in any room reports
// core.ErrNotInRoom; the gateway drops those silently.
func (e *Engine) ApplyEdit(connectionID string, op core.EditOperation) (string, string, error) {
	roomID, ok := e.registry.RoomOf(connectionID)
	if !ok {
		return "", "", core.ErrNotInRoom
	}

	buffer, err := e.registry.UpdateBuffer(roomID, func(current string) string {
		return Splice(current, op)
	}, func(string) {
		if e.applied != nil {
			e.applied(roomID, connectionID, op)
		}
	})
	if err != nil {
		return "", "", err
	}

	logrus.WithFields(logrus.Fields{
		"room_id":       roomID,
		"connection_id": connectionID,
		"buffer_len":    len(buffer),
	}).Debug("Edit applied")

	return roomID, buffer, nil
}

// SnapshotOf returns the room's current buffer, used for a fresh joiner's
// initial sync. A brand-new room reads as the empty string.
func (e *Engine) SnapshotOf(roomID string) (string, error) {
	return e.registry.Buffer(roomID)
}
