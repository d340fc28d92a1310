package snapshots

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"codeshare-server/core"
)

type (
	// BufferReader captures a live room's buffer at snapshot time.
	BufferReader interface {
		Buffer(roomID string) (string, error)
	}

	CreateSnapshotRequest struct {
		Name      string `json:"name"`
		CreatedBy string `json:"created_by"`
	}

	CreateSnapshotResponse struct {
		ID string `json:"id"`
	}
)

// HandleCreateSnapshot captures the room's current buffer under a name.
func HandleCreateSnapshot(store core.SnapshotStore, reader BufferReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")

		var req CreateSnapshotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithField("error", err).Error("Failed to decode request")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		buffer, err := reader.Buffer(roomID)
		if errors.Is(err, core.ErrRoomNotFound) {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Failed to read room buffer", http.StatusInternalServerError)
			return
		}

		id, err := store.CreateSnapshot(r.Context(), roomID, req.Name, req.CreatedBy, buffer)
		if err != nil {
			logrus.WithField("error", err).Error("Failed to create snapshot")
			http.Error(w, "Failed to create snapshot", http.StatusInternalServerError)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, CreateSnapshotResponse{ID: id})
	}
}

// HandleListSnapshots lists all snapshots taken of a room.
func HandleListSnapshots(store core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")

		snapshots, err := store.ListSnapshots(r.Context(), roomID)
		if err != nil {
			logrus.WithField("error", err).Error("Failed to list snapshots")
			http.Error(w, "Failed to list snapshots", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, snapshots)
	}
}

// HandleGetSnapshot returns one snapshot including its buffer.
func HandleGetSnapshot(store core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "snapshotID")

		snapshot, err := store.GetSnapshot(r.Context(), id)
		if err != nil {
			http.Error(w, "Snapshot not found", http.StatusNotFound)
			return
		}

		render.JSON(w, r, snapshot)
	}
}

// HandleDeleteSnapshot removes one snapshot.
func HandleDeleteSnapshot(store core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "snapshotID")

		if err := store.DeleteSnapshot(r.Context(), id); err != nil {
			logrus.WithField("error", err).Error("Failed to delete snapshot")
			http.Error(w, "Failed to delete snapshot", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
