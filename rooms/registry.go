package rooms

import (
	"crypto/rand"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"codeshare-server/core"
)

const (
	idAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	idLength      = 6
	maxIDAttempts = 32
)

// room is the single owned record for one live session. The registry table
// holds the only reference; dropping it at zero members reclaims the buffer.
type room struct {
	id      string
	members map[string]struct{}

	// mu serializes buffer access so edits to one room apply one at a time
	// without contending with any other room.
	mu     sync.Mutex
	buffer string
}

// Registry tracks live rooms and which room each connection belongs to.
// A connection belongs to at most one room at a time.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*room
	byConn   map[string]string
	presence core.PresenceStore
	listener core.MembershipListener
}

func NewRegistry(presence core.PresenceStore) *Registry {
	return &Registry{
		rooms:    make(map[string]*room),
		byConn:   make(map[string]string),
		presence: presence,
	}
}

// SetMembershipListener wires the presence broadcaster. Join and leave are
// the only operations that trigger it.
func (r *Registry) SetMembershipListener(l core.MembershipListener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

// CreateRoom allocates a fresh room with the caller as its first member.
func (r *Registry) CreateRoom(connectionID, displayName string) (string, error) {
	r.LeaveRoom(connectionID)

	r.mu.Lock()
	var id string
	for attempt := 0; ; attempt++ {
		if attempt == maxIDAttempts {
			r.mu.Unlock()
			return "", fmt.Errorf("room id space exhausted after %d attempts", maxIDAttempts)
		}
		id = newRoomID()
		if _, taken := r.rooms[id]; !taken {
			break
		}
	}

	rm := &room{id: id, members: map[string]struct{}{connectionID: {}}}
	r.rooms[id] = rm
	r.byConn[connectionID] = id
	r.presence.Set(connectionID, displayName)
	update, listener := r.membershipUpdateLocked(rm)
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"room_id":       id,
		"connection_id": connectionID,
	}).Info("Room created")

	deliver(listener, update)
	return id, nil
}

// JoinRoom adds the caller to an existing room. A room with zero members no
// longer exists, so joining it reports core.ErrRoomNotFound.
func (r *Registry) JoinRoom(connectionID, roomID, displayName string) error {
	r.LeaveRoom(connectionID)

	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok || len(rm.members) == 0 {
		r.mu.Unlock()
		logrus.WithField("room_id", roomID).Warn("Join requested for unknown room")
		return core.ErrRoomNotFound
	}

	rm.members[connectionID] = struct{}{}
	r.byConn[connectionID] = roomID
	r.presence.Set(connectionID, displayName)
	update, listener := r.membershipUpdateLocked(rm)
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"room_id":       roomID,
		"connection_id": connectionID,
		"members":       len(update.Members),
	}).Info("Connection joined room")

	deliver(listener, update)
	return nil
}

// LeaveRoom removes the caller from its current room, if any. Calling it for
// an unattached connection is a no-op. The room is destroyed the instant its
// membership reaches zero.
func (r *Registry) LeaveRoom(connectionID string) {
	r.mu.Lock()
	roomID, ok := r.byConn[connectionID]
	if !ok {
		r.mu.Unlock()
		return
	}

	delete(r.byConn, connectionID)
	r.presence.Delete(connectionID)

	rm := r.rooms[roomID]
	delete(rm.members, connectionID)
	if len(rm.members) == 0 {
		delete(r.rooms, roomID)
		r.mu.Unlock()
		logrus.WithField("room_id", roomID).Info("Room closed (empty)")
		return
	}

	update, listener := r.membershipUpdateLocked(rm)
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"room_id":       roomID,
		"connection_id": connectionID,
		"members":       len(update.Members),
	}).Info("Connection left room")

	deliver(listener, update)
}

// RoomOf resolves the room a connection currently belongs to.
func (r *Registry) RoomOf(connectionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.byConn[connectionID]
	return roomID, ok
}

// MembersOf returns the connection ids currently in the room.
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(rm.members))
	for id := range rm.members {
		members = append(members, id)
	}
	return members
}

// MembershipSnapshot returns the full id to display name mapping for a room.
func (r *Registry) MembershipSnapshot(roomID string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, core.ErrRoomNotFound
	}

	members := make(map[string]string, len(rm.members))
	for id := range rm.members {
		name, _ := r.presence.Get(id)
		members[id] = name
	}
	return members, nil
}

// ListRooms returns the live rooms, busiest first, for the HTTP surface.
func (r *Registry) ListRooms() []core.Room {
	r.mu.RLock()
	list := make([]core.Room, 0, len(r.rooms))
	for id, rm := range r.rooms {
		list = append(list, core.Room{ID: id, Members: len(rm.members)})
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].Members == list[j].Members {
			return list[i].ID < list[j].ID
		}
		return list[i].Members > list[j].Members
	})
	return list
}

// UpdateBuffer applies fn to the room's buffer under the room's own lock and
// returns the new buffer. Concurrent updates to the same room apply one at a
// time in arrival order; updates to different rooms never contend.
//
// When then is non-nil it runs with the room still serialized, so side
// effects of consecutive updates, like broadcasting each applied edit, keep
// the apply order. Only the room's own lock is held during then; registry
// lookups remain safe, further buffer updates do not.
func (r *Registry) UpdateBuffer(roomID string, fn func(string) string, then func(buffer string)) (string, error) {
	r.mu.RLock()
	rm, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return "", core.ErrRoomNotFound
	}

	rm.mu.Lock()
	rm.buffer = fn(rm.buffer)
	buffer := rm.buffer
	if then != nil {
		then(buffer)
	}
	rm.mu.Unlock()
	return buffer, nil
}

// Buffer returns the room's current buffer. The read observes the state
// either before or after any in-flight edit, never a partial write.
func (r *Registry) Buffer(roomID string) (string, error) {
	r.mu.RLock()
	rm, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return "", core.ErrRoomNotFound
	}

	rm.mu.Lock()
	buffer := rm.buffer
	rm.mu.Unlock()
	return buffer, nil
}

// membershipUpdateLocked builds the broadcastable snapshot for a room.
// Caller holds r.mu, making the snapshot atomic with the mutation.
func (r *Registry) membershipUpdateLocked(rm *room) (core.MembershipUpdate, core.MembershipListener) {
	update := core.MembershipUpdate{
		RoomID:     rm.id,
		Members:    make(map[string]string, len(rm.members)),
		Recipients: make([]string, 0, len(rm.members)),
	}
	for id := range rm.members {
		name, _ := r.presence.Get(id)
		update.Members[id] = name
		update.Recipients = append(update.Recipients, id)
	}
	return update, r.listener
}

func deliver(listener core.MembershipListener, update core.MembershipUpdate) {
	if listener == nil || len(update.Recipients) == 0 {
		return
	}
	listener.MembershipChanged(update)
}

func newRoomID() string {
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}
