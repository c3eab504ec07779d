package panels

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/editor"
	"github.com/sirupsen/logrus"
)

// Prompt length bounds for AI generation.
const (
	MinPromptLength = 5
	MaxPromptLength = 200
)

// DefaultTheme seeds the ideas panel.
const DefaultTheme = "popular t-shirt designs"

// MaxIdeas is the number of ideas shown.
const MaxIdeas = 4

// AI produces image layers from text prompts.
type AI struct {
	store *editor.Store
	gen   Generator
}

// NewAI binds the AI panels to a store and a generator.
func NewAI(store *editor.Store, gen Generator) *AI {
	return &AI{store: store, gen: gen}
}

// Generate creates an image from prompt and adds it as a layer.
func (p *AI) Generate(ctx context.Context, prompt string) (core.Snapshot, core.Layer, error) {
	n := utf8.RuneCountInString(prompt)
	if n < MinPromptLength || n > MaxPromptLength {
		return core.Snapshot{}, nil, invalid("prompt must be between %d and %d characters", MinPromptLength, MaxPromptLength)
	}

	src, err := p.gen.GenerateDesign(ctx, prompt)
	if err != nil || src == "" {
		logrus.WithFields(logrus.Fields{"error": err}).Warn("Design generation failed")
		return core.Snapshot{}, nil, generationError(err)
	}

	snap, layer := p.store.AddLayer(core.ImageData{Src: src, Zoom: 1})
	return snap, layer, nil
}

// Ideas suggests prompts for theme, keeping at most MaxIdeas.
func (p *AI) Ideas(ctx context.Context, theme string) ([]string, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		theme = DefaultTheme
	}
	ideas, err := p.gen.SuggestIdeas(ctx, theme)
	if err != nil || len(ideas) == 0 {
		logrus.WithFields(logrus.Fields{"theme": theme, "error": err}).Warn("Idea suggestion failed")
		return nil, generationError(err)
	}
	if len(ideas) > MaxIdeas {
		ideas = ideas[:MaxIdeas]
	}
	return ideas, nil
}

// UseIdea generates a design from a suggested idea. Ideas are not held to the
// prompt form's length limits.
func (p *AI) UseIdea(ctx context.Context, idea string) (core.Snapshot, core.Layer, error) {
	if strings.TrimSpace(idea) == "" {
		return core.Snapshot{}, nil, invalid("idea cannot be empty")
	}
	src, err := p.gen.GenerateDesign(ctx, idea)
	if err != nil || src == "" {
		logrus.WithFields(logrus.Fields{"error": err}).Warn("Idea generation failed")
		return core.Snapshot{}, nil, generationError(err)
	}
	snap, layer := p.store.AddLayer(core.ImageData{Src: src, Zoom: 1})
	return snap, layer, nil
}

// generationError wraps a generator failure. A nil err means the generator
// answered with nothing usable.
func generationError(err error) error {
	if err == nil {
		return fmt.Errorf("%w: empty result", ErrGenerationFailed)
	}
	return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
}
