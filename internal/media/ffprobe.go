package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ffprobePayload is the slice of ffprobe's JSON output the pipeline reads.
// Only the container duration matters; stream details are ignored.
type ffprobePayload struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration measures how long a narration track plays. Synthesis engines
// do not reliably report the rendered length, and the caption timeline needs
// it exactly, so the audio file itself is the source of truth.
func ProbeDuration(ctx context.Context, binary, path string) (float64, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("probe duration: empty audio path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w: %s", path, err, strings.TrimSpace(string(output)))
	}

	var payload ffprobePayload
	if err := json.Unmarshal(output, &payload); err != nil {
		return 0, fmt.Errorf("probe %s: decode ffprobe output: %w", path, err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(payload.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("probe %s: bad duration %q: %w", path, payload.Format.Duration, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("probe %s: narration duration must be positive, got %.3f", path, seconds)
	}
	return seconds, nil
}
