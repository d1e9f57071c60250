package tts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"versecast/internal/timeline"
)

// Segment is one timed span in an alignment sidecar file.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type alignmentPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadAlignment reads an alignment sidecar and converts its segments into
// caption timing hints. An empty path yields no hints, which callers treat
// as a signal to fall back to proportional timing.
func LoadAlignment(path string) ([]timeline.AlignmentHint, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alignment file: %w", err)
	}
	var payload alignmentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse alignment json: %w", err)
	}

	hints := make([]timeline.AlignmentHint, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		hints = append(hints, timeline.AlignmentHint{
			Text:         strings.TrimSpace(seg.Text),
			StartSeconds: seg.Start,
			EndSeconds:   seg.End,
		})
	}
	return hints, nil
}
