package timeline

import (
	"errors"
	"fmt"

	"versecast/internal/poem"
)

var (
	// ErrInvalidDuration indicates the audio duration is zero or negative.
	ErrInvalidDuration = errors.New("invalid duration")
)

const (
	// minSpanSeconds is the floor duration per caption so very short lines
	// never collapse into unreadable flashes.
	minSpanSeconds = 0.8
	// pauseSeconds is the weight added for a deliberate narrative pause,
	// matching the silence fragment the narration inserts for blank lines.
	pauseSeconds = 0.6
)

// Span is one timed caption aligned to a source line.
type Span struct {
	Text         string
	StartSeconds float64
	EndSeconds   float64
	SourceLine   int
}

// AlignmentHint is a per-line timing interval reported by the synthesis
// engine. Hints map to lines positionally.
type AlignmentHint struct {
	Text         string
	StartSeconds float64
	EndSeconds   float64
}

// Build produces the caption timeline for a poem. When the synthesis engine
// supplied usable per-line hints, spans snap to the hinted intervals; without
// hints the total duration is distributed proportionally to line length.
//
// In both modes the result is ordered, non-overlapping, and never extends
// past totalSeconds. In fallback mode the first span starts at zero and the
// last span ends at exactly totalSeconds.
func Build(lines []poem.Line, totalSeconds float64, hints []AlignmentHint) ([]Span, error) {
	if len(lines) == 0 {
		return nil, poem.ErrEmptyBody
	}
	if totalSeconds <= 0 {
		return nil, fmt.Errorf("%w: %.3fs", ErrInvalidDuration, totalSeconds)
	}

	if spans, ok := buildHinted(lines, totalSeconds, hints); ok {
		return spans, nil
	}
	return buildProportional(lines, totalSeconds), nil
}

// buildHinted snaps spans to engine-reported intervals. It reports !ok when
// the hints are unusable (count mismatch or no positive-length interval), in
// which case the caller falls back to proportional allocation.
func buildHinted(lines []poem.Line, totalSeconds float64, hints []AlignmentHint) ([]Span, bool) {
	if len(hints) != len(lines) {
		return nil, false
	}
	usable := false
	for _, h := range hints {
		if h.EndSeconds > h.StartSeconds {
			usable = true
			break
		}
	}
	if !usable {
		return nil, false
	}

	spans := make([]Span, 0, len(lines))
	cursor := 0.0
	for i, line := range lines {
		start := hints[i].StartSeconds
		if start < cursor {
			start = cursor
		}
		end := hints[i].EndSeconds
		if end > totalSeconds {
			end = totalSeconds
		}
		if end <= start {
			// Degenerate hint: give the line the floor duration without
			// stealing from what follows.
			end = start + minSpanSeconds
			if i+1 < len(hints) && hints[i+1].StartSeconds > start && hints[i+1].StartSeconds < end {
				end = hints[i+1].StartSeconds
			}
			if end > totalSeconds {
				end = totalSeconds
			}
			if end <= start {
				return nil, false
			}
		}
		spans = append(spans, Span{
			Text:         line.Text,
			StartSeconds: start,
			EndSeconds:   end,
			SourceLine:   line.Index,
		})
		cursor = end
	}
	return spans, true
}

// buildProportional distributes the audio length across lines by character
// count with a floor per line and extra weight for narrative pauses, then
// rescales so the final span ends at exactly totalSeconds.
func buildProportional(lines []poem.Line, totalSeconds float64) []Span {
	durations := make([]float64, len(lines))
	weightSum := 0.0
	for i, line := range lines {
		weight := float64(len([]rune(line.Text)))
		if weight < 1 {
			weight = 1
		}
		durations[i] = weight
		weightSum += weight
	}

	allocated := 0.0
	for i := range durations {
		durations[i] = totalSeconds * durations[i] / weightSum
		if durations[i] < minSpanSeconds {
			durations[i] = minSpanSeconds
		}
		if lines[i].PauseBefore {
			durations[i] += pauseSeconds
		}
		allocated += durations[i]
	}

	// Normalization: floors and pause weights can push the sum off the audio
	// length; rescale so cumulative time matches it exactly.
	scale := totalSeconds / allocated
	spans := make([]Span, len(lines))
	cursor := 0.0
	for i, line := range lines {
		start := cursor
		cursor += durations[i] * scale
		spans[i] = Span{
			Text:         line.Text,
			StartSeconds: start,
			EndSeconds:   cursor,
			SourceLine:   line.Index,
		}
	}
	spans[0].StartSeconds = 0
	spans[len(spans)-1].EndSeconds = totalSeconds
	return spans
}
