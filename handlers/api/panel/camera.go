package panel

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/Pabi691/custom-clothology/panels"
	"github.com/go-chi/render"
)

// bodyStream serves a single frame posted by the browser, which owns the
// actual camera device.
type bodyStream struct {
	r         *http.Request
	mediaType string
	once      sync.Once
}

func (b *bodyStream) Snapshot(ctx context.Context) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(b.r.Body, panels.MaxUploadBytes+1))
	if err != nil {
		return nil, "", err
	}
	return data, b.mediaType, nil
}

func (b *bodyStream) Stop() {
	b.once.Do(func() { b.r.Body.Close() })
}

func acquireBody(r *http.Request) panels.Acquirer {
	return func(ctx context.Context) (panels.Stream, error) {
		if r.ContentLength == 0 {
			return nil, errors.New("no frame received")
		}
		return &bodyStream{r: r, mediaType: r.Header.Get("Content-Type")}, nil
	}
}

// HandleCameraCapture adds a camera frame, posted as the raw request body, as
// an image layer.
func HandleCameraCapture() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		snap, layer, err := panels.NewUpload(s.Store, nil).CaptureFromCamera(r.Context(), acquireBody(r))
		if err != nil {
			renderError(w, r, s, err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, layerResponse{Design: snap, Layer: layer})
	}
}
