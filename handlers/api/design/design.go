// Package design serves the document store operations and canvas gestures of
// the caller's session.
package design

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Pabi691/custom-clothology/canvas"
	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/editor"
	"github.com/Pabi691/custom-clothology/handlers/auth"
	"github.com/Pabi691/custom-clothology/middleware"
	"github.com/Pabi691/custom-clothology/panels"
	"github.com/Pabi691/custom-clothology/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type (
	reorderRequest struct {
		Direction editor.Direction `json:"direction"`
	}

	dragRequest struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	resizeRequest struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}

	textRequest struct {
		Text string `json:"text"`
	}

	sideRequest struct {
		Side core.Side `json:"side"`
	}

	selectionRequest struct {
		ID string `json:"id"`
	}

	layerResponse struct {
		Design core.Snapshot `json:"design"`
		Layer  core.Layer    `json:"layer"`
	}
)

func currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := middleware.SessionFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "Session not found"})
	}
	return s, ok
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Invalid request body"})
		return false
	}
	return true
}

// HandleGetDesign returns the current snapshot.
func HandleGetDesign() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		render.JSON(w, r, s.Store.Snapshot())
	}
}

func badGeometry(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

// HandleAddLayer appends a type-discriminated layer to the active side.
// Layers that cannot be placed in layout are refused.
func HandleAddLayer(layout canvas.Layout) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		r.Body.Close()
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Failed to read request body"})
			return
		}
		data, err := core.DecodeLayerData(body)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		if err := layout.CheckData(data); err != nil {
			badGeometry(w, r, err)
			return
		}

		snap, layer := s.Store.AddLayer(data)
		logrus.WithFields(logrus.Fields{
			"session_id": s.ID,
			"layer_id":   layer.LayerFrame().ID,
			"type":       layer.Type(),
		}).Debug("Layer added")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, layerResponse{Design: snap, Layer: layer})
	}
}

// HandleUpdateLayer merges a partial update into a layer. Unknown ids leave
// the document unchanged.
func HandleUpdateLayer(layout canvas.Layout) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		var patch core.LayerPatch
		if !decode(w, r, &patch) {
			return
		}
		if err := layout.CheckPatch(patch); err != nil {
			badGeometry(w, r, err)
			return
		}
		render.JSON(w, r, s.Store.UpdateLayer(chi.URLParam(r, "id"), patch))
	}
}

// HandleReorderLayer moves a layer one step up or down.
func HandleReorderLayer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		var req reorderRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Direction != editor.Up && req.Direction != editor.Down {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "direction must be up or down"})
			return
		}
		render.JSON(w, r, s.Store.ReorderLayer(chi.URLParam(r, "id"), req.Direction))
	}
}

// HandleDeleteLayer removes a layer.
func HandleDeleteLayer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		render.JSON(w, r, s.Store.DeleteLayer(chi.URLParam(r, "id")))
	}
}

// HandleClearAll empties the active side.
func HandleClearAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		render.JSON(w, r, s.Store.ClearAll())
	}
}

// HandleRemoveLast removes the topmost layer of the active side.
func HandleRemoveLast() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		render.JSON(w, r, s.Store.RemoveLast())
	}
}

// HandleDrag moves a layer of the active side to a printable-area position,
// clamped so the layer stays inside the area.
func HandleDrag(layout canvas.Layout) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		var req dragRequest
		if !decode(w, r, &req) {
			return
		}
		if err := canvas.CheckFinite(req.X, req.Y); err != nil {
			badGeometry(w, r, err)
			return
		}
		id := chi.URLParam(r, "id")
		l, found := s.Store.Snapshot().Active().Find(id)
		if !found {
			render.JSON(w, r, s.Store.Snapshot())
			return
		}
		f := layout.ClampDrag(l.LayerFrame(), req.X, req.Y)
		render.JSON(w, r, s.Store.UpdateLayer(id, core.LayerPatch{X: &f.X, Y: &f.Y}))
	}
}

// HandleResize applies a resize gesture, clamped to the printable area.
func HandleResize(layout canvas.Layout) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		var req resizeRequest
		if !decode(w, r, &req) {
			return
		}
		if err := canvas.CheckFinite(req.X, req.Y, req.Width, req.Height); err != nil {
			badGeometry(w, r, err)
			return
		}
		id := chi.URLParam(r, "id")
		l, found := s.Store.Snapshot().Active().Find(id)
		if !found {
			render.JSON(w, r, s.Store.Snapshot())
			return
		}
		f := layout.ClampResize(l.LayerFrame(), req.X, req.Y, req.Width, req.Height)
		render.JSON(w, r, s.Store.UpdateLayer(id, core.LayerPatch{X: &f.X, Y: &f.Y, Width: &f.Width, Height: &f.Height}))
	}
}

// HandleCommitText stores text edited in place on the canvas.
func HandleCommitText() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		var req textRequest
		if !decode(w, r, &req) {
			return
		}
		text := panels.NewText(s.Store, s.Drafts)
		render.JSON(w, r, text.Commit(chi.URLParam(r, "id"), req.Text))
	}
}

// HandleLayersPanel lists the active side's layers topmost first.
func HandleLayersPanel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		render.JSON(w, r, panels.ListLayers(s.Store.Snapshot()))
	}
}

// HandleSetSide switches the active side and clears the selection.
func HandleSetSide() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		var req sideRequest
		if !decode(w, r, &req) {
			return
		}
		side, err := core.ParseSide(string(req.Side))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		render.JSON(w, r, s.Store.SetSide(side))
	}
}

// HandleSetSelection selects a layer, or clears the selection for an empty id.
func HandleSetSelection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		var req selectionRequest
		if !decode(w, r, &req) {
			return
		}
		render.JSON(w, r, s.Store.SetSelected(req.ID))
	}
}

// HandleSetOptions records the garment colour and size. Colours are stored
// as hex values.
func HandleSetOptions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		var req core.ProductOptions
		if !decode(w, r, &req) {
			return
		}
		opts, err := panels.ValidateOptions(req)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		render.JSON(w, r, s.Store.SetOptions(opts))
	}
}

// HandleEndSession closes the caller's session.
func HandleEndSession(gate *auth.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		gate.End(w, r, s.ID)
	}
}
