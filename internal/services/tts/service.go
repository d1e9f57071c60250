package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"versecast/internal/config"
	"versecast/internal/media"
	"versecast/internal/services"
	"versecast/internal/stage"
)

// Request describes one narration job.
type Request struct {
	Text      string
	Language  string
	OutputDir string
	BaseName  string
}

// Result carries the artifacts produced by a synthesis run.
type Result struct {
	AudioPath       string
	AlignmentPath   string
	DurationSeconds float64
}

// Service drives the external speech synthesis command and probes the
// resulting narration with ffprobe.
type Service struct {
	cfg           config.TTS
	ffprobeBinary string
	commandRunner func(ctx context.Context, name string, args ...string) error
	probe         func(ctx context.Context, binary, path string) (float64, error)
}

// NewService creates a synthesis service from application configuration.
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:           cfg.TTS,
		ffprobeBinary: cfg.Render.FFprobeBinary,
		probe:         media.ProbeDuration,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// WithProbe sets a custom duration probe (for testing).
func (s *Service) WithProbe(probe func(ctx context.Context, binary, path string) (float64, error)) {
	s.probe = probe
}

// Synthesize narrates the request text into OutputDir/BaseName.wav and
// returns the audio path, the alignment sidecar path when the engine wrote
// one, and the measured narration duration.
func (s *Service) Synthesize(ctx context.Context, req Request) (Result, error) {
	var result Result

	if strings.TrimSpace(req.Text) == "" {
		return result, services.Wrap(services.ErrValidation, "tts", "synthesize", "narration text is empty", nil)
	}
	if req.OutputDir == "" || req.BaseName == "" {
		return result, services.Wrap(services.ErrValidation, "tts", "synthesize", "output location required", nil)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "tts", "synthesize", "ensure output directory", err)
	}

	audioPath := filepath.Join(req.OutputDir, req.BaseName+".wav")
	language := req.Language
	if s.cfg.ForceLanguage != "" {
		language = s.cfg.ForceLanguage
	}

	args := buildArgs(s.cfg, req.Text, audioPath, language)
	runCtx := ctx
	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	if err := s.run(runCtx, s.cfg.Command, args...); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "tts", "synthesize", "speech synthesis command failed", err)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "tts", "synthesize", "synthesis produced no audio file", err)
	}
	result.AudioPath = audioPath

	// Engines that emit word timing write a JSON sidecar next to the audio.
	alignmentPath := filepath.Join(req.OutputDir, req.BaseName+".json")
	if _, err := os.Stat(alignmentPath); err == nil {
		result.AlignmentPath = alignmentPath
	}

	duration, err := s.probe(ctx, s.ffprobeBinary, audioPath)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "tts", "probe", "measure narration duration", err)
	}
	result.DurationSeconds = duration

	return result, nil
}

// HealthCheck verifies the synthesis command and ffprobe are on PATH.
func (s *Service) HealthCheck(_ context.Context) stage.Health {
	if strings.TrimSpace(s.cfg.Command) == "" {
		return stage.Unhealthy("tts", "no synthesis command configured")
	}
	if _, err := exec.LookPath(s.cfg.Command); err != nil {
		return stage.Unhealthy("tts", fmt.Sprintf("command %q not found", s.cfg.Command))
	}
	if _, err := exec.LookPath(s.ffprobeBinary); err != nil {
		return stage.Unhealthy("tts", fmt.Sprintf("ffprobe %q not found", s.ffprobeBinary))
	}
	return stage.Healthy("tts")
}

func buildArgs(cfg config.TTS, text, outputPath, language string) []string {
	args := []string{"--text", text, "--output", outputPath}
	if cfg.Voice != "" {
		args = append(args, "--voice", cfg.Voice)
	}
	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}
	if language != "" {
		args = append(args, "--language", language)
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
