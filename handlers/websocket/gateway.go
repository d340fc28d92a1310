package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"

	"codeshare-server/core"
	"codeshare-server/ratelimit"
	"codeshare-server/relay"
	"codeshare-server/rooms"
	"codeshare-server/textsync"
)

const (
	// Edit and cursor traffic is chatty; the bucket is per connection so a
	// runaway client only throttles itself.
	eventsPerSecond = 200
	eventBurst      = 400
)

type (
	createRequest struct {
		DisplayName string `json:"displayName"`
	}

	joinRequest struct {
		RoomID      string `json:"roomId"`
		DisplayName string `json:"displayName"`
	}

	roomRef struct {
		RoomID string `json:"roomId"`
	}

	syncResponse struct {
		Buffer string `json:"buffer"`
	}
)

// serverEmitter delivers events through the socket.io server. Every socket
// is implicitly a member of the room named by its own id, which gives a
// per-connection address without tracking raw transport handles.
type serverEmitter struct {
	srv *socketio.Server
}

func (e *serverEmitter) Emit(connectionID, event string, payload any) {
	_ = e.srv.To(socketio.Room(connectionID)).Emit(event, payload)
}

// SetupSocketIO builds the connection gateway: it accepts connections,
// dispatches inbound events by type to the registry, sync engine, and
// relays, and tears down room and presence state on disconnect.
func SetupSocketIO(registry *rooms.Registry, presence core.PresenceStore, engine *textsync.Engine) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	localhostOrigin := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
	origins := []any{localhostOrigin}
	if extra := os.Getenv("CLIENT_ORIGIN"); extra != "" {
		origins = append(origins, extra)
	}
	opts.SetCors(&types.Cors{
		Origin:      origins,
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	emitter := &serverEmitter{srv: srv}
	fanout := relay.NewFanout(registry, emitter)
	broadcaster := relay.NewPresenceBroadcaster(registry, emitter)
	cursors := relay.NewCursorRelay(fanout)
	signals := relay.NewSignalRelay(fanout)
	registry.SetMembershipListener(broadcaster)

	// The listener fires inside the room's serialized section, so recipients
	// see edits in exactly the order they were applied to the buffer.
	engine.SetAppliedListener(func(roomID, senderID string, op core.EditOperation) {
		fanout.ToRoomExcept(roomID, senderID, relay.EventEditApplied, op)
	})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}

		connID := string(socket.Id())
		limiter := ratelimit.NewLimiter(eventsPerSecond, eventBurst)
		dropped := 0
		log := logrus.WithField("connection_id", connID)
		log.Debug("Connection attached")

		allow := func(event string) bool {
			if limiter.Allow() {
				return true
			}
			dropped++
			if dropped%100 == 1 {
				log.WithFields(logrus.Fields{
					"event":   event,
					"dropped": dropped,
				}).Warn("Rate limit exceeded, dropping event")
			}
			return false
		}

		socket.On("room.create", func(datas ...any) {
			roomID, err := registry.CreateRoom(connID, displayNameOf(datas))
			if err != nil {
				log.WithField("error", err).Error("Failed to create room")
				return
			}
			_ = socket.Emit("room.created", roomRef{RoomID: roomID})
		})

		socket.On("room.join", func(datas ...any) {
			var req joinRequest
			if err := decodeFirst(datas, &req); err != nil {
				log.WithField("error", err).Warn("Malformed join request")
				return
			}

			err := registry.JoinRoom(connID, req.RoomID, req.DisplayName)
			if errors.Is(err, core.ErrRoomNotFound) {
				_ = socket.Emit("room.not_found", roomRef{RoomID: req.RoomID})
				return
			}
			_ = socket.Emit("room.joined", roomRef{RoomID: req.RoomID})
		})

		socket.On("room.leave", func(datas ...any) {
			registry.LeaveRoom(connID)
		})

		socket.On("code.edit", func(datas ...any) {
			if !allow("code.edit") {
				return
			}

			var op core.EditOperation
			if err := decodeFirst(datas, &op); err != nil {
				log.WithField("error", err).Warn("Malformed edit operation")
				return
			}

			// Broadcasting happens through the applied listener; orphan edits
			// in the window around join/leave are dropped silently.
			_, _, _ = engine.ApplyEdit(connID, op)
		})

		socket.On("code.sync.request", func(datas ...any) {
			roomID, ok := registry.RoomOf(connID)
			if !ok {
				return
			}
			buffer, err := engine.SnapshotOf(roomID)
			if err != nil {
				return
			}
			_ = socket.Emit("code.sync.response", syncResponse{Buffer: buffer})
		})

		socket.On("cursor.update", func(datas ...any) {
			if !allow("cursor.update") {
				return
			}

			var cursor core.Cursor
			if err := decodeFirst(datas, &cursor); err != nil {
				log.WithField("error", err).Warn("Malformed cursor update")
				return
			}
			cursors.RelayCursor(connID, cursor)
		})

		socket.On("signal.ready", func(datas ...any) {
			signals.NotifyReady(connID)
		})

		socket.On("signal.relay", func(datas ...any) {
			if !allow("signal.relay") {
				return
			}
			var payload any
			if len(datas) > 0 {
				payload = datas[0]
			}
			signals.RelaySignal(connID, payload)
		})

		socket.On("signal.stream_stopped", func(datas ...any) {
			signals.NotifyStreamStopped(connID)
		})

		socket.On("disconnecting", func(datas ...any) {
			log.Debug("Connection disconnecting")
			// Leave cascades the membership broadcast to the former room;
			// the extra presence delete covers unattached connections.
			registry.LeaveRoom(connID)
			presence.Delete(connID)
		})

		socket.On("disconnect", func(datas ...any) {
			socket.RemoveAllListeners("")
			socket.Disconnect(true)
		})
	})

	return srv
}

// decodeFirst maps the first event argument onto v. Socket.IO hands payloads
// over as map[string]any; routing them through encoding/json gives typed
// structs without hand-written coercion.
func decodeFirst(datas []any, v any) error {
	if len(datas) == 0 {
		return fmt.Errorf("missing payload")
	}
	raw, err := json.Marshal(datas[0])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// displayNameOf accepts either a bare string or a {displayName} object.
func displayNameOf(datas []any) string {
	if len(datas) == 0 {
		return ""
	}
	if name, ok := datas[0].(string); ok {
		return name
	}
	var req createRequest
	_ = decodeFirst(datas, &req)
	return req.DisplayName
}
