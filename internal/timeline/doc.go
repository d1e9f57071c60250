// Package timeline converts poem lines plus a narration length into timed
// caption spans.
//
// Two modes exist: hinted, when the synthesis engine reported per-line
// timestamps, and proportional fallback, which carves the audio length by
// character count. The fallback guarantees exact coverage of the audio: the
// first span starts at zero and the last ends at precisely the total
// duration, regardless of floating-point drift during allocation.
package timeline
