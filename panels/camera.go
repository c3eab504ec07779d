package panels

import (
	"context"
	"fmt"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/sirupsen/logrus"
)

// Stream is an exclusively held camera stream.
type Stream interface {
	// Snapshot grabs one frame as encoded image bytes.
	Snapshot(ctx context.Context) ([]byte, string, error)
	// Stop releases every track of the stream.
	Stop()
}

// Acquirer opens a camera stream.
type Acquirer func(ctx context.Context) (Stream, error)

// CaptureFromCamera takes one snapshot from a freshly acquired stream and adds
// it as an image layer. The stream is stopped on every path once acquired.
func (p *Upload) CaptureFromCamera(ctx context.Context, acquire Acquirer) (core.Snapshot, core.Layer, error) {
	stream, err := acquire(ctx)
	if err != nil || stream == nil {
		if stream != nil {
			stream.Stop()
		}
		logrus.WithFields(logrus.Fields{"error": err}).Warn("Camera acquisition failed")
		return core.Snapshot{}, nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	defer stream.Stop()

	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, nil, err
	}
	data, mediaType, err := stream.Snapshot(ctx)
	if err != nil {
		return core.Snapshot{}, nil, fmt.Errorf("camera snapshot: %w", err)
	}
	return p.Add(ctx, UploadRequest{Data: data, MediaType: mediaType})
}
