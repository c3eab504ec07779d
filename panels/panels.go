// Package panels holds the producers that turn user input into document
// store operations. Input is validated here; the store never validates.
package panels

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrValidation wraps every input rejection.
	ErrValidation = errors.New("invalid input")
	// ErrGenerationFailed is returned when the AI collaborator produced no
	// usable result. The document is left unchanged.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrCameraUnavailable is returned when no camera stream could be
	// acquired.
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// Generator is the AI generation collaborator.
type Generator interface {
	GenerateDesign(ctx context.Context, prompt string) (string, error)
	SuggestIdeas(ctx context.Context, theme string) ([]string, error)
	EnhanceImage(ctx context.Context, photoDataURI, instructions string) (string, error)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
