// Package media describes audio artifacts exchanged between pipeline stages
// and probes their properties with ffprobe.
package media

// Artifact is a handle to a synthesized narration track.
type Artifact struct {
	Path            string
	DurationSeconds float64
}
