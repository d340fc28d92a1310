// Package relay implements every room-scoped broadcast in the system on one
// shared fan-out primitive, so the sender-exclusion rule holds uniformly for
// edits, cursors, and signaling.
package relay

import (
	"codeshare-server/core"
)

// Outbound broadcast events.
const (
	EventMembersUpdated      = "room.members.updated"
	EventEditApplied         = "code.edit.applied"
	EventCursorUpdate        = "cursor.update"
	EventSignalReady         = "signal.ready"
	EventSignalRelay         = "signal.relay"
	EventSignalStreamStopped = "signal.stream_stopped"
)

type (
	// MembersUpdated is the full membership snapshot pushed after every join
	// and leave. Always the whole set, never a diff: the snapshot is
	// idempotent and self-correcting, so no sequence numbers are needed.
	MembersUpdated struct {
		RoomID  string            `json:"roomId"`
		Members map[string]string `json:"members"`
	}

	// CursorBroadcast tags a relayed cursor with the sending connection.
	CursorBroadcast struct {
		From   string      `json:"from"`
		Cursor core.Cursor `json:"cursor"`
	}
)

// Fanout delivers one payload to the members of a sender's room. Delivery is
// per-recipient fire-and-forget; a slow receiver never stalls the sender.
type Fanout struct {
	directory core.RoomDirectory
	emitter   core.Emitter
}

func NewFanout(directory core.RoomDirectory, emitter core.Emitter) *Fanout {
	return &Fanout{directory: directory, emitter: emitter}
}

// ToRoomExcept sends to every member of the room except the sender.
func (f *Fanout) ToRoomExcept(roomID, senderID, event string, payload any) {
	for _, member := range f.directory.MembersOf(roomID) {
		if member == senderID {
			continue
		}
		f.emitter.Emit(member, event, payload)
	}
}

// FromSender resolves the sender's room and broadcasts to the rest of it.
// Returns false when the sender is not in any room; callers treat that as a
// silent no-op since it is expected around join/leave windows.
func (f *Fanout) FromSender(senderID, event string, payload any) bool {
	roomID, ok := f.directory.RoomOf(senderID)
	if !ok {
		return false
	}
	f.ToRoomExcept(roomID, senderID, event, payload)
	return true
}

// MembershipSource is the registry surface the presence broadcaster reads.
type MembershipSource interface {
	MembershipSnapshot(roomID string) (map[string]string, error)
}

// PresenceBroadcaster pushes membership snapshots to a room's members,
// including whichever member triggered the change, so a joining user
// immediately sees themselves listed.
type PresenceBroadcaster struct {
	source  MembershipSource
	emitter core.Emitter
}

func NewPresenceBroadcaster(source MembershipSource, emitter core.Emitter) *PresenceBroadcaster {
	return &PresenceBroadcaster{source: source, emitter: emitter}
}

// MembershipChanged delivers a snapshot the registry computed atomically
// with the join/leave that produced it.
func (b *PresenceBroadcaster) MembershipChanged(update core.MembershipUpdate) {
	payload := MembersUpdated{RoomID: update.RoomID, Members: update.Members}
	for _, recipient := range update.Recipients {
		b.emitter.Emit(recipient, EventMembersUpdated, payload)
	}
}

// BroadcastMembership recomputes a room's snapshot and pushes it to every
// current member. Unknown rooms are a no-op.
func (b *PresenceBroadcaster) BroadcastMembership(roomID string) {
	members, err := b.source.MembershipSnapshot(roomID)
	if err != nil {
		return
	}
	update := core.MembershipUpdate{
		RoomID:     roomID,
		Members:    members,
		Recipients: make([]string, 0, len(members)),
	}
	for id := range members {
		update.Recipients = append(update.Recipients, id)
	}
	b.MembershipChanged(update)
}

// CursorRelay forwards ephemeral cursor positions to the rest of the
// sender's room. Nothing is stored and nothing is acknowledged.
type CursorRelay struct {
	fanout *Fanout
}

func NewCursorRelay(fanout *Fanout) *CursorRelay {
	return &CursorRelay{fanout: fanout}
}

func (r *CursorRelay) RelayCursor(connectionID string, cursor core.Cursor) {
	// A cursor without a real selection sheds any stray selection fields so
	// recipients never render a half-specified highlight.
	if !cursor.HasSelection() {
		cursor.SelectionStartLine = 0
		cursor.SelectionStartColumn = 0
		cursor.SelectionEndLine = 0
		cursor.SelectionEndColumn = 0
	}
	r.fanout.FromSender(connectionID, EventCursorUpdate, CursorBroadcast{
		From:   connectionID,
		Cursor: cursor,
	})
}

// SignalRelay forwards opaque peer-signaling payloads between room members
// to bootstrap direct media channels. Payloads are never inspected or
// stored; the only failure mode, sender not in a room, is a no-op.
type SignalRelay struct {
	fanout *Fanout
}

func NewSignalRelay(fanout *Fanout) *SignalRelay {
	return &SignalRelay{fanout: fanout}
}

// NotifyReady tells the rest of the room this peer can negotiate media.
func (r *SignalRelay) NotifyReady(connectionID string) {
	r.fanout.FromSender(connectionID, EventSignalReady, core.SignalEnvelope{From: connectionID})
}

// RelaySignal forwards payload, tagged with the sender so recipients know
// which peer to answer.
func (r *SignalRelay) RelaySignal(connectionID string, payload any) {
	r.fanout.FromSender(connectionID, EventSignalRelay, core.SignalEnvelope{
		From:    connectionID,
		Payload: payload,
	})
}

// NotifyStreamStopped tells the room this peer's outbound media stopped so
// remote views can be cleared.
func (r *SignalRelay) NotifyStreamStopped(connectionID string) {
	r.fanout.FromSender(connectionID, EventSignalStreamStopped, core.SignalEnvelope{From: connectionID})
}
