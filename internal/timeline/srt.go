package timeline

import (
	"fmt"
	"io"
	"math"
)

// WriteSRT serializes spans as SubRip cues for the renderer to burn in.
func WriteSRT(w io.Writer, spans []Span) error {
	for i, span := range spans {
		_, err := fmt.Fprintf(
			w,
			"%d\n%s --> %s\n%s\n\n",
			i+1,
			formatSRTTimestamp(span.StartSeconds),
			formatSRTTimestamp(span.EndSeconds),
			span.Text,
		)
		if err != nil {
			return fmt.Errorf("write srt cue %d: %w", i+1, err)
		}
	}
	return nil
}

func formatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int(math.Round(seconds * 1000))
	h := millis / 3_600_000
	millis -= h * 3_600_000
	m := millis / 60_000
	millis -= m * 60_000
	s := millis / 1000
	millis -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, millis)
}
