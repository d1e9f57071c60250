package config

import (
	"errors"
	"fmt"
	"strings"

	"versecast/internal/render"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.SourceDir == "" {
		return errors.New("paths.source_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateRender() error {
	if err := c.VisualConfig().Validate(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := ensurePositiveMap(map[string]int{
		"tts.timeout_seconds":    c.TTS.TimeoutSeconds,
		"render.timeout_seconds": c.Render.TimeoutSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePublish() error {
	switch c.Publish.Target {
	case "none":
		return nil
	case "drive":
		if strings.TrimSpace(c.Publish.Drive.CredentialsFile) == "" {
			return errors.New("publish.drive.credentials_file must be set when publish.target is drive")
		}
		if strings.TrimSpace(c.Publish.Drive.FolderID) == "" {
			return errors.New("publish.drive.folder_id must be set when publish.target is drive")
		}
		return nil
	case "youtube":
		if strings.TrimSpace(c.Publish.YouTube.TokenFile) == "" {
			return errors.New("publish.youtube.token_file must be set when publish.target is youtube")
		}
		switch c.Publish.YouTube.Privacy {
		case "public", "unlisted", "private":
		default:
			return fmt.Errorf("publish.youtube.privacy must be public, unlisted, or private, got %q", c.Publish.YouTube.Privacy)
		}
		return nil
	default:
		return fmt.Errorf("publish.target must be none, drive, or youtube, got %q", c.Publish.Target)
	}
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxAttempts <= 0 {
		return errors.New("workflow.max_attempts must be positive")
	}
	if c.Workflow.Workers <= 0 {
		return errors.New("workflow.workers must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// VisualConfig maps the render section onto the validated visual options
// consumed at render request assembly.
func (c *Config) VisualConfig() render.VisualConfig {
	return render.VisualConfig{
		Palette:     c.Render.Palette,
		FontSize:    c.Render.FontSize,
		Particles:   c.Render.Particles,
		FPS:         c.Render.FPS,
		Width:       c.Render.Width,
		Height:      c.Render.Height,
		FadeSeconds: c.Render.FadeSeconds,
	}
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
