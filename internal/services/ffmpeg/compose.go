package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"versecast/internal/config"
	"versecast/internal/logging"
	"versecast/internal/render"
	"versecast/internal/services"
	"versecast/internal/stage"
	"versecast/internal/timeline"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Composer turns an assembled render request into a finished vertical video
// using ffmpeg. The animated background comes from the gradients lavfi
// source, captions are burned in from a generated SRT file, and the
// narration track is muxed underneath.
type Composer struct {
	binary         string
	timeoutSeconds int
	logger         *slog.Logger
	run            commandRunner
}

// NewComposer constructs a video composer from application configuration.
func NewComposer(cfg *config.Config, logger *slog.Logger) *Composer {
	return &Composer{
		binary:         cfg.Render.FFmpegBinary,
		timeoutSeconds: cfg.Render.TimeoutSeconds,
		logger:         logging.NewComponentLogger(logger, "composer"),
		run:            defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (c *Composer) WithCommandRunner(r commandRunner) {
	if c != nil && r != nil {
		c.run = r
	}
}

// Compose renders the request into outputPath. The write is atomic: ffmpeg
// targets a temporary file which is renamed into place on success, so an
// interrupted render never leaves a truncated video at the final path.
func (c *Composer) Compose(ctx context.Context, req render.Request, outputPath string) error {
	if outputPath == "" {
		return services.Wrap(services.ErrValidation, "render", "compose", "output path required", nil)
	}
	if req.Audio.Path == "" {
		return services.Wrap(services.ErrValidation, "render", "compose", "narration audio required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "render", "compose", "ensure output directory", err)
	}

	srtPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".srt"
	srtFile, err := os.Create(srtPath)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "render", "compose", "create caption file", err)
	}
	if err := timeline.WriteSRT(srtFile, req.Spans); err != nil {
		_ = srtFile.Close()
		return services.Wrap(services.ErrValidation, "render", "compose", "write captions", err)
	}
	if err := srtFile.Close(); err != nil {
		return services.Wrap(services.ErrConfiguration, "render", "compose", "close caption file", err)
	}

	ext := filepath.Ext(outputPath)
	tempPath := strings.TrimSuffix(outputPath, ext) + ".part" + ext
	args := BuildArgs(req, srtPath, tempPath)

	runCtx := ctx
	if c.timeoutSeconds > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(c.timeoutSeconds)*time.Second)
		defer cancel()
	}

	c.logger.Info("composing video",
		logging.String("output", outputPath),
		logging.String("palette", req.Visual.Palette),
		logging.Float64("duration_seconds", req.Audio.DurationSeconds))

	if err := c.run(runCtx, c.binary, args...); err != nil {
		_ = os.Remove(tempPath)
		return services.Wrap(services.ErrExternalTool, "render", "compose", "ffmpeg failed", err)
	}
	if err := os.Rename(tempPath, outputPath); err != nil {
		return services.Wrap(services.ErrConfiguration, "render", "compose", "finalize output", err)
	}
	return nil
}

// HealthCheck verifies the ffmpeg binary is on PATH.
func (c *Composer) HealthCheck(_ context.Context) stage.Health {
	if _, err := exec.LookPath(c.binary); err != nil {
		return stage.Unhealthy("render", fmt.Sprintf("ffmpeg %q not found", c.binary))
	}
	return stage.Healthy("render")
}

// BuildArgs assembles the full ffmpeg argument list for a render request.
// Kept pure so tests can assert the command line without executing ffmpeg.
func BuildArgs(req render.Request, srtPath, outputPath string) []string {
	v := req.Visual
	duration := req.Audio.DurationSeconds
	colors, ok := render.PaletteColors(v.Palette)
	if !ok {
		colors, _ = render.PaletteColors("midnight")
	}

	background := fmt.Sprintf(
		"gradients=s=%dx%d:c0=%s:c1=%s:c2=%s:nb_colors=3:seed=%d:speed=0.015:d=%s",
		v.Width, v.Height,
		colors[0].Hex(), colors[1].Hex(), colors[2].Hex(),
		v.Particles,
		formatSeconds(duration),
	)

	fadeOutStart := duration - v.FadeSeconds
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}
	filter := fmt.Sprintf(
		"[0:v]subtitles=%s:force_style='Fontsize=%d,Alignment=10,PrimaryColour=&H00FFFFFF,Outline=2',fade=t=in:st=0:d=%s,fade=t=out:st=%s:d=%s[v]",
		escapeFilterPath(srtPath),
		v.FontSize,
		formatSeconds(v.FadeSeconds),
		formatSeconds(fadeOutStart),
		formatSeconds(v.FadeSeconds),
	)

	return []string{
		"-y",
		"-f", "lavfi",
		"-i", background,
		"-i", req.Audio.Path,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "1:a",
		"-r", strconv.Itoa(v.FPS),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		outputPath,
	}
}

// escapeFilterPath escapes a path for use inside an ffmpeg filter graph,
// where ':' separates options and '\' starts an escape.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`[`, `\[`,
		`]`, `\]`,
	)
	return replacer.Replace(path)
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(tail(string(output), 2000)))
	}
	return nil
}

// tail returns the last n bytes of s; ffmpeg output is noisy and only the
// end carries the failure reason.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
