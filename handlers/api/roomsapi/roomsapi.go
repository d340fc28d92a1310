package roomsapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"codeshare-server/core"
)

type (
	// Directory is the registry surface the room API reads. It never mutates.
	Directory interface {
		ListRooms() []core.Room
		MembershipSnapshot(roomID string) (map[string]string, error)
		Buffer(roomID string) (string, error)
	}

	roomSummary struct {
		ID    string `json:"id"`
		Users int    `json:"users"`
	}

	roomDetail struct {
		ID      string            `json:"id"`
		Members map[string]string `json:"members"`
		Buffer  string            `json:"buffer"`
	}
)

// HandleList lists live rooms, busiest first.
func HandleList(directory Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms := directory.ListRooms()
		list := make([]roomSummary, 0, len(rooms))
		for _, room := range rooms {
			list = append(list, roomSummary{ID: room.ID, Users: room.Members})
		}
		render.JSON(w, r, list)
	}
}

// HandleGet returns one room's membership and current buffer.
func HandleGet(directory Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")

		members, err := directory.MembershipSnapshot(roomID)
		if errors.Is(err, core.ErrRoomNotFound) {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}

		// The room can empty out between the two reads; that is still a 404,
		// not a server fault.
		buffer, err := directory.Buffer(roomID)
		if errors.Is(err, core.ErrRoomNotFound) {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"room_id": roomID,
				"error":   err,
			}).Error("Failed to read room buffer")
			http.Error(w, "Failed to read room", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, roomDetail{ID: roomID, Members: members, Buffer: buffer})
	}
}
