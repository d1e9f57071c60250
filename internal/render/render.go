package render

import (
	"errors"
	"fmt"

	"versecast/internal/media"
	"versecast/internal/poem"
	"versecast/internal/timeline"
)

var (
	// ErrTimelineMismatch indicates a caption span references a line the
	// poem does not contain.
	ErrTimelineMismatch = errors.New("timeline mismatch")
	// ErrInvalidConfig indicates a visual configuration value is outside
	// its recognized range.
	ErrInvalidConfig = errors.New("invalid visual config")
)

// VisualConfig enumerates every recognized visual option and its valid range.
// Validation happens once, at request assembly time.
type VisualConfig struct {
	Palette     string
	FontSize    int
	Particles   int
	FPS         int
	Width       int
	Height      int
	FadeSeconds float64
}

// Validate checks every visual option against its recognized range.
func (v VisualConfig) Validate() error {
	if _, ok := PaletteColors(v.Palette); !ok {
		return fmt.Errorf("%w: unknown palette %q", ErrInvalidConfig, v.Palette)
	}
	if v.FontSize <= 0 {
		return fmt.Errorf("%w: font size must be positive, got %d", ErrInvalidConfig, v.FontSize)
	}
	if v.Particles < 0 {
		return fmt.Errorf("%w: particle count must not be negative, got %d", ErrInvalidConfig, v.Particles)
	}
	if v.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive, got %d", ErrInvalidConfig, v.FPS)
	}
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("%w: resolution must be positive, got %dx%d", ErrInvalidConfig, v.Width, v.Height)
	}
	if v.FadeSeconds < 0 {
		return fmt.Errorf("%w: fade must not be negative, got %.2f", ErrInvalidConfig, v.FadeSeconds)
	}
	return nil
}

// Portrait reports whether the configured resolution is vertical.
func (v VisualConfig) Portrait() bool {
	return v.Height >= v.Width
}

// Request bundles everything the video composition collaborator needs to
// produce one output file. It is copied on build and never mutated after,
// so a failed render can be retried with an identical request.
type Request struct {
	Title  string
	Author string
	Lines  []poem.Line
	Audio  media.Artifact
	Spans  []timeline.Span
	Visual VisualConfig
}

// Assemble validates and combines a poem, its narration artifact, the caption
// timeline, and the visual configuration into one render request. It performs
// no rendering.
func Assemble(doc *poem.Document, audio media.Artifact, spans []timeline.Span, visual VisualConfig) (*Request, error) {
	if doc == nil || len(doc.Lines) == 0 {
		return nil, poem.ErrEmptyBody
	}
	if err := visual.Validate(); err != nil {
		return nil, err
	}
	for _, span := range spans {
		if span.SourceLine < 0 || span.SourceLine >= len(doc.Lines) {
			return nil, fmt.Errorf("%w: span references line %d of %d", ErrTimelineMismatch, span.SourceLine, len(doc.Lines))
		}
	}

	req := &Request{
		Title:  doc.Title,
		Author: doc.Author,
		Lines:  make([]poem.Line, len(doc.Lines)),
		Audio:  audio,
		Spans:  make([]timeline.Span, len(spans)),
		Visual: visual,
	}
	copy(req.Lines, doc.Lines)
	copy(req.Spans, spans)
	return req, nil
}
