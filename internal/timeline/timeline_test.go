package timeline_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"versecast/internal/poem"
	"versecast/internal/timeline"
)

func mustLines(t *testing.T, texts ...string) []poem.Line {
	t.Helper()
	lines := make([]poem.Line, len(texts))
	for i, text := range texts {
		lines[i] = poem.Line{Text: text, Index: i}
	}
	return lines
}

func assertWellFormed(t *testing.T, spans []timeline.Span, total float64) {
	t.Helper()
	for i, span := range spans {
		if span.EndSeconds <= span.StartSeconds {
			t.Fatalf("span %d has non-positive length: %+v", i, span)
		}
		if span.EndSeconds > total+1e-9 {
			t.Fatalf("span %d exceeds total duration: %+v", i, span)
		}
		if i > 0 && spans[i-1].EndSeconds > span.StartSeconds+1e-9 {
			t.Fatalf("spans %d and %d overlap: %+v / %+v", i-1, i, spans[i-1], span)
		}
	}
}

func TestBuildSingleLineSpansWholeDuration(t *testing.T) {
	spans, err := timeline.Build(mustLines(t, "Todo es uno."), 3.0, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if spans[0].StartSeconds != 0 || spans[0].EndSeconds != 3.0 {
		t.Fatalf("expected (0.0, 3.0), got (%v, %v)", spans[0].StartSeconds, spans[0].EndSeconds)
	}
}

func TestBuildProportionalFavorsLongerLine(t *testing.T) {
	spans, err := timeline.Build(mustLines(t, "Primera línea.", "Segunda línea, más larga todavía."), 10.0, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected two spans, got %d", len(spans))
	}
	assertWellFormed(t, spans, 10.0)
	if spans[0].StartSeconds != 0 {
		t.Fatalf("first span must start at 0, got %v", spans[0].StartSeconds)
	}
	if spans[1].EndSeconds != 10.0 {
		t.Fatalf("last span must end at exactly 10.0, got %v", spans[1].EndSeconds)
	}
	first := spans[0].EndSeconds - spans[0].StartSeconds
	second := spans[1].EndSeconds - spans[1].StartSeconds
	if second <= first {
		t.Fatalf("longer line should get the larger share: %v vs %v", first, second)
	}
}

func TestBuildProportionalNormalizesExactly(t *testing.T) {
	texts := []string{"a", "bb", "ccc", "una línea algo más larga que las otras", "d", "ee"}
	lines := mustLines(t, texts...)
	lines[3].PauseBefore = true

	for _, total := range []float64{1.7, 10.0, 31.41, 120.0} {
		spans, err := timeline.Build(lines, total, nil)
		if err != nil {
			t.Fatalf("Build(%v) failed: %v", total, err)
		}
		if len(spans) != len(lines) {
			t.Fatalf("expected %d spans, got %d", len(lines), len(spans))
		}
		assertWellFormed(t, spans, total)
		if spans[0].StartSeconds != 0 {
			t.Fatalf("first span must start at 0, got %v", spans[0].StartSeconds)
		}
		if spans[len(spans)-1].EndSeconds != total {
			t.Fatalf("last span must end at exactly %v, got %v", total, spans[len(spans)-1].EndSeconds)
		}
	}
}

func TestBuildPauseWeightExtendsPausedLine(t *testing.T) {
	plain := mustLines(t, "misma longitud aquí", "misma longitud aquí")
	paused := mustLines(t, "misma longitud aquí", "misma longitud aquí")
	paused[1].PauseBefore = true

	base, err := timeline.Build(plain, 10.0, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	withPause, err := timeline.Build(paused, 10.0, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	baseShare := base[1].EndSeconds - base[1].StartSeconds
	pausedShare := withPause[1].EndSeconds - withPause[1].StartSeconds
	if pausedShare <= baseShare {
		t.Fatalf("pause should add weight: %v vs %v", pausedShare, baseShare)
	}
}

func TestBuildInvalidDuration(t *testing.T) {
	for _, total := range []float64{0, -1.5} {
		_, err := timeline.Build(mustLines(t, "línea"), total, nil)
		if !errors.Is(err, timeline.ErrInvalidDuration) {
			t.Fatalf("Build(%v): expected ErrInvalidDuration, got %v", total, err)
		}
	}
}

func TestBuildEmptyLines(t *testing.T) {
	_, err := timeline.Build(nil, 5.0, nil)
	if !errors.Is(err, poem.ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestBuildHintedSnapsToIntervals(t *testing.T) {
	lines := mustLines(t, "uno", "dos", "tres")
	lines[2].PauseBefore = true
	hints := []timeline.AlignmentHint{
		{Text: "uno", StartSeconds: 0.1, EndSeconds: 1.4},
		{Text: "dos", StartSeconds: 1.5, EndSeconds: 2.9},
		// Gap before the third hint models the narrative pause.
		{Text: "tres", StartSeconds: 3.6, EndSeconds: 4.8},
	}
	spans, err := timeline.Build(lines, 5.0, hints)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	assertWellFormed(t, spans, 5.0)
	if spans[0].StartSeconds != 0.1 || spans[0].EndSeconds != 1.4 {
		t.Fatalf("hinted span not snapped: %+v", spans[0])
	}
	// The pause gap between spans 1 and 2 must be preserved, not compressed.
	if gap := spans[2].StartSeconds - spans[1].EndSeconds; math.Abs(gap-0.7) > 1e-9 {
		t.Fatalf("expected 0.7s pause gap preserved, got %v", gap)
	}
}

func TestBuildHintedClampsToDuration(t *testing.T) {
	lines := mustLines(t, "uno", "dos")
	hints := []timeline.AlignmentHint{
		{StartSeconds: 0, EndSeconds: 2.0},
		{StartSeconds: 2.0, EndSeconds: 7.5},
	}
	spans, err := timeline.Build(lines, 5.0, hints)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	assertWellFormed(t, spans, 5.0)
	if spans[1].EndSeconds != 5.0 {
		t.Fatalf("final span must be clamped to audio length, got %v", spans[1].EndSeconds)
	}
}

func TestBuildHintedOverlapResolved(t *testing.T) {
	lines := mustLines(t, "uno", "dos")
	hints := []timeline.AlignmentHint{
		{StartSeconds: 0, EndSeconds: 3.0},
		{StartSeconds: 2.5, EndSeconds: 4.0},
	}
	spans, err := timeline.Build(lines, 5.0, hints)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	assertWellFormed(t, spans, 5.0)
	if spans[1].StartSeconds < spans[0].EndSeconds {
		t.Fatalf("overlapping hints must be clamped monotonic: %+v", spans)
	}
}

func TestBuildHintCountMismatchFallsBack(t *testing.T) {
	lines := mustLines(t, "uno", "dos", "tres")
	hints := []timeline.AlignmentHint{{StartSeconds: 0, EndSeconds: 1}}
	spans, err := timeline.Build(lines, 6.0, hints)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if spans[0].StartSeconds != 0 || spans[len(spans)-1].EndSeconds != 6.0 {
		t.Fatalf("expected proportional fallback coverage, got %+v", spans)
	}
}

func TestWriteSRT(t *testing.T) {
	spans := []timeline.Span{
		{Text: "Primera línea.", StartSeconds: 0, EndSeconds: 2.5, SourceLine: 0},
		{Text: "Segunda.", StartSeconds: 2.5, EndSeconds: 61.04, SourceLine: 1},
	}
	var b strings.Builder
	if err := timeline.WriteSRT(&b, spans); err != nil {
		t.Fatalf("WriteSRT failed: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:02,500\nPrimera línea.\n\n2\n00:00:02,500 --> 00:01:01,040\nSegunda.\n\n"
	if b.String() != want {
		t.Fatalf("unexpected srt output:\n%s", b.String())
	}
}
