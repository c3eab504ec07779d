package panels

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/editor"
	"github.com/sirupsen/logrus"
)

// MaxUploadBytes caps an uploaded image.
const MaxUploadBytes = 10 << 20

// UploadRequest is an image supplied by the user, either as raw bytes or as a
// data URI.
type UploadRequest struct {
	Data      []byte
	MediaType string
	DataURI   string

	// Enhance runs the image through the AI collaborator first.
	Enhance      bool
	Instructions string
}

// Upload adds user supplied images as layers.
type Upload struct {
	store *editor.Store
	gen   Generator
}

// NewUpload binds the upload panel to a store. gen may be nil when
// enhancement is not configured.
func NewUpload(store *editor.Store, gen Generator) *Upload {
	return &Upload{store: store, gen: gen}
}

// Add validates the upload and appends it as an image layer.
func (p *Upload) Add(ctx context.Context, req UploadRequest) (core.Snapshot, core.Layer, error) {
	src, err := req.dataURI()
	if err != nil {
		return core.Snapshot{}, nil, err
	}

	if req.Enhance {
		if p.gen == nil {
			return core.Snapshot{}, nil, fmt.Errorf("%w: enhancement is not configured", ErrGenerationFailed)
		}
		enhanced, err := p.gen.EnhanceImage(ctx, src, strings.TrimSpace(req.Instructions))
		if err != nil || enhanced == "" {
			logrus.WithFields(logrus.Fields{"error": err}).Warn("Image enhancement failed")
			return core.Snapshot{}, nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		src = enhanced
	}

	snap, layer := p.store.AddLayer(core.ImageData{Src: src, Zoom: 1})
	return snap, layer, nil
}

func (req UploadRequest) dataURI() (string, error) {
	if req.DataURI != "" {
		mediaType, data, err := core.ParseDataURI(req.DataURI)
		if err != nil {
			return "", invalid("%v", err)
		}
		if err := checkImage(mediaType, len(data)); err != nil {
			return "", err
		}
		return req.DataURI, nil
	}

	if len(req.Data) == 0 {
		return "", invalid("no image supplied")
	}
	mediaType := req.MediaType
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = http.DetectContentType(req.Data)
	}
	mediaType, _, _ = strings.Cut(mediaType, ";")
	if err := checkImage(mediaType, len(req.Data)); err != nil {
		return "", err
	}
	return core.EncodeDataURI(mediaType, req.Data), nil
}

func checkImage(mediaType string, size int) error {
	if !strings.HasPrefix(mediaType, "image/") {
		return invalid("%s is not an image", mediaType)
	}
	if size > MaxUploadBytes {
		return invalid("image exceeds %d bytes", MaxUploadBytes)
	}
	return nil
}
