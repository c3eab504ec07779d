// Package panel serves the producer panels: text, AI generation, ideas,
// uploads and camera capture.
package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/middleware"
	"github.com/Pabi691/custom-clothology/panels"
	"github.com/Pabi691/custom-clothology/session"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type (
	promptRequest struct {
		Prompt string `json:"prompt"`
	}

	ideaRequest struct {
		Idea string `json:"idea"`
	}

	uploadRequest struct {
		DataURI      string `json:"dataUri"`
		Enhance      bool   `json:"enhance"`
		Instructions string `json:"instructions"`
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

func decode(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, limit)).Decode(v); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Invalid request body"})
		return false
	}
	return true
}

// renderError maps panel errors to statuses. The document is unchanged in
// every case. Only validation errors reach the client verbatim; upstream
// detail is logged.
func renderError(w http.ResponseWriter, r *http.Request, s *session.Session, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, panels.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, panels.ErrGenerationFailed):
		status, msg = http.StatusBadGateway, "Generation failed, please try again"
	case errors.Is(err, panels.ErrCameraUnavailable):
		status, msg = http.StatusServiceUnavailable, "Camera is unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "Request timed out"
	}
	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{"session_id": s.ID, "error": err}).Error("Panel request failed")
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

func notConfigured(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusServiceUnavailable)
	render.JSON(w, r, map[string]string{"error": "AI generation is not configured"})
}

// HandleTextSubmit updates the selected text layer or adds a new one.
func HandleTextSubmit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		var d core.TextData
		if !decode(w, r, maxBodyBytes, &d) {
			return
		}
		snap, err := panels.NewText(s.Store, s.Drafts).Submit(d)
		if err != nil {
			renderError(w, r, s, err)
			return
		}
		render.JSON(w, r, snap)
	}
}

// HandleTextDraft schedules a debounced live edit of the selected text layer.
func HandleTextDraft() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		var d core.TextData
		if !decode(w, r, maxBodyBytes, &d) {
			return
		}
		scheduled, err := panels.NewText(s.Store, s.Drafts).Draft(d)
		if err != nil {
			renderError(w, r, s, err)
			return
		}
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, map[string]bool{"scheduled": scheduled})
	}
}

// HandleGenerate creates an image layer from a prompt.
func HandleGenerate(gen panels.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		if gen == nil {
			notConfigured(w, r)
			return
		}
		var req promptRequest
		if !decode(w, r, maxBodyBytes, &req) {
			return
		}
		snap, layer, err := panels.NewAI(s.Store, gen).Generate(r.Context(), req.Prompt)
		if err != nil {
			renderError(w, r, s, err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, layerResponse{Design: snap, Layer: layer})
	}
}

// HandleIdeas suggests design ideas for the theme query parameter.
func HandleIdeas(gen panels.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		if gen == nil {
			notConfigured(w, r)
			return
		}
		ideas, err := panels.NewAI(s.Store, gen).Ideas(r.Context(), r.URL.Query().Get("theme"))
		if err != nil {
			renderError(w, r, s, err)
			return
		}
		render.JSON(w, r, map[string][]string{"ideas": ideas})
	}
}

// HandleUseIdea generates a design from a suggested idea.
func HandleUseIdea(gen panels.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		if gen == nil {
			notConfigured(w, r)
			return
		}
		var req ideaRequest
		if !decode(w, r, maxBodyBytes, &req) {
			return
		}
		snap, layer, err := panels.NewAI(s.Store, gen).UseIdea(r.Context(), req.Idea)
		if err != nil {
			renderError(w, r, s, err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, layerResponse{Design: snap, Layer: layer})
	}
}

// HandleUpload adds an uploaded image. It accepts a multipart form with a
// "file" part, or JSON carrying a data URI. Either form may ask for AI
// enhancement first. gen may be nil when enhancement is not configured.
func HandleUpload(gen panels.Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		req, err := readUpload(w, r)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		snap, layer, err := panels.NewUpload(s.Store, gen).Add(r.Context(), req)
		if err != nil {
			renderError(w, r, s, err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, layerResponse{Design: snap, Layer: layer})
	}
}

func readUpload(w http.ResponseWriter, r *http.Request) (panels.UploadRequest, error) {
	// Leave room for base64 expansion and the form envelope.
	limit := int64(panels.MaxUploadBytes)*4/3 + maxBodyBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	ct := r.Header.Get("Content-Type")
	if mediaType, _, _ := mime.ParseMediaType(ct); mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(panels.MaxUploadBytes); err != nil {
			return panels.UploadRequest{}, fmt.Errorf("invalid form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return panels.UploadRequest{}, fmt.Errorf("file is required: %w", err)
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, panels.MaxUploadBytes+1))
		if err != nil {
			return panels.UploadRequest{}, err
		}
		enhance, _ := strconv.ParseBool(r.FormValue("enhance"))
		return panels.UploadRequest{
			Data:         data,
			MediaType:    header.Header.Get("Content-Type"),
			Enhance:      enhance,
			Instructions: r.FormValue("instructions"),
		}, nil
	}

	var body uploadRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return panels.UploadRequest{}, fmt.Errorf("invalid request body: %w", err)
	}
	return panels.UploadRequest{
		DataURI:      body.DataURI,
		Enhance:      body.Enhance,
		Instructions: body.Instructions,
	}, nil
}
