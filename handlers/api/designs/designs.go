// Package designs saves and restores a session's document through the design
// store.
package designs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Pabi691/custom-clothology/canvas"
	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/middleware"
	"github.com/Pabi691/custom-clothology/session"
	"github.com/Pabi691/custom-clothology/stores"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type saveRequest struct {
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail"`
}

// OwnerID derives the storage owner from a commerce token.
func OwnerID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := middleware.SessionFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "Session not found"})
	}
	return s, ok
}

// designKey reads and validates the key URL parameter.
func designKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := chi.URLParam(r, "key")
	if err := core.CheckDesignID(key); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Design key is invalid"})
		return "", false
	}
	return key, true
}

func HandleListDesigns(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}

		designs, err := store.List(r.Context(), OwnerID(s.Token))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"session_id": s.ID,
			}).Error("Failed to list designs")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list designs"})
			return
		}
		if designs == nil {
			designs = []*core.Design{}
		}
		render.JSON(w, r, designs)
	}
}

func HandleGetDesign(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		key, ok := designKey(w, r)
		if !ok {
			return
		}

		design, err := store.Get(r.Context(), OwnerID(s.Token), key)
		if err != nil {
			renderStoreError(w, r, s, key, err)
			return
		}
		render.JSON(w, r, design)
	}
}

// HandleSaveDesign stores the session's current document under key. The body
// may carry a name and a thumbnail; the name defaults to the key.
func HandleSaveDesign(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		key, ok := designKey(w, r)
		if !ok {
			return
		}

		var req saveRequest
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		r.Body.Close()
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Failed to read request body"})
			return
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": "Invalid request body"})
				return
			}
		}
		if req.Name == "" {
			req.Name = key
		}

		snap := s.Store.Snapshot()
		design := &core.Design{
			ID:        key,
			OwnerID:   OwnerID(s.Token),
			Name:      req.Name,
			Thumbnail: req.Thumbnail,
			Front:     snap.Front,
			Back:      snap.Back,
			Options:   snap.Options,
		}
		if err := store.Save(r.Context(), design); err != nil {
			renderStoreError(w, r, s, key, err)
			return
		}

		logrus.WithFields(logrus.Fields{"session_id": s.ID, "key": key}).Info("Design saved")
		render.JSON(w, r, design.Summary())
	}
}

func HandleDeleteDesign(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		key, ok := designKey(w, r)
		if !ok {
			return
		}

		if err := store.Delete(r.Context(), OwnerID(s.Token), key); err != nil {
			renderStoreError(w, r, s, key, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRestoreDesign replaces the session's document with a saved design.
func HandleRestoreDesign(store stores.Store, layout canvas.Layout) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		key, ok := designKey(w, r)
		if !ok {
			return
		}

		design, err := store.Get(r.Context(), OwnerID(s.Token), key)
		if err != nil {
			renderStoreError(w, r, s, key, err)
			return
		}
		for _, layer := range append(append(core.Layers{}, design.Front...), design.Back...) {
			if err := layout.CheckLayer(layer); err != nil {
				logrus.WithFields(logrus.Fields{
					"session_id": s.ID,
					"key":        key,
					"layer_id":   layer.LayerFrame().ID,
					"error":      err,
				}).Warn("Saved design cannot be placed")
				render.Status(r, http.StatusUnprocessableEntity)
				render.JSON(w, r, map[string]string{"error": err.Error()})
				return
			}
		}
		s.Store.Restore(design.Front, design.Back)
		render.JSON(w, r, s.Store.SetOptions(design.Options))
	}
}

func renderStoreError(w http.ResponseWriter, r *http.Request, s *session.Session, key string, err error) {
	switch {
	case errors.Is(err, core.ErrDesignNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "Design not found"})
	case errors.Is(err, core.ErrInvalidDesignID):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Design key is invalid"})
	default:
		logrus.WithFields(logrus.Fields{
			"error":      err,
			"session_id": s.ID,
			"key":        key,
		}).Error("Design store failed")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Design store failed"})
	}
}
