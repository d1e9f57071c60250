package workflow

import (
	"context"
	"fmt"
	"path/filepath"

	"versecast/internal/ledger"
	"versecast/internal/logging"
	"versecast/internal/media"
	"versecast/internal/poem"
	"versecast/internal/render"
	"versecast/internal/services"
	"versecast/internal/services/tts"
	"versecast/internal/timeline"
)

// Composer renders an assembled request into a video file.
type Composer interface {
	Compose(ctx context.Context, req render.Request, outputPath string) error
}

// processItem drives a claimed item through every pipeline stage. The claim
// already moved the item to synthesizing; each later stage records its
// status transition before starting so an interrupted run is recoverable.
func (r *Runner) processItem(ctx context.Context, item *ledger.Item) error {
	doc, err := poem.Parse(item.Body)
	if err != nil {
		return services.Wrap(services.ErrValidation, "parse", "parse poem", "poem document rejected", err)
	}

	audio, spans, err := r.synthesizeStage(ctx, item, doc)
	if err != nil {
		return err
	}

	videoPath, err := r.renderStage(ctx, item, doc, audio, spans)
	if err != nil {
		return err
	}

	return r.publishStage(ctx, item, videoPath)
}

func (r *Runner) synthesizeStage(ctx context.Context, item *ledger.Item, doc *poem.Document) (media.Artifact, []timeline.Span, error) {
	ctx = services.WithStage(ctx, "synthesizing")
	logger := logging.WithContext(ctx, r.logger)

	result, err := r.synth.Synthesize(ctx, tts.Request{
		Text:      poem.NormalizeForSpeech(doc.Text()),
		Language:  doc.Language(),
		OutputDir: filepath.Join(r.cfg.Paths.OutputDir, "audio"),
		BaseName:  item.ID,
	})
	if err != nil {
		return media.Artifact{}, nil, err
	}
	if err := r.store.RecordSynthesis(ctx, item.ID, result.AudioPath, result.AlignmentPath); err != nil {
		return media.Artifact{}, nil, fmt.Errorf("record synthesis artifacts: %w", err)
	}
	logger.Info("narration synthesized",
		logging.Float64("duration_seconds", result.DurationSeconds),
		logging.Bool("aligned", result.AlignmentPath != ""))

	hints, err := tts.LoadAlignment(result.AlignmentPath)
	if err != nil {
		logger.Warn("alignment unusable, falling back to proportional timing", logging.Error(err))
		hints = nil
	}
	spans, err := timeline.Build(doc.Lines, result.DurationSeconds, hints)
	if err != nil {
		return media.Artifact{}, nil, services.Wrap(services.ErrValidation, "synthesizing", "build timeline", "caption timeline rejected", err)
	}

	audio := media.Artifact{Path: result.AudioPath, DurationSeconds: result.DurationSeconds}
	return audio, spans, nil
}

func (r *Runner) renderStage(ctx context.Context, item *ledger.Item, doc *poem.Document, audio media.Artifact, spans []timeline.Span) (string, error) {
	ctx = services.WithStage(ctx, "rendering")
	logger := logging.WithContext(ctx, r.logger)

	if err := r.store.MarkStatus(ctx, item.ID, ledger.StatusRendering); err != nil {
		return "", fmt.Errorf("advance to rendering: %w", err)
	}

	req, err := render.Assemble(doc, audio, spans, r.cfg.VisualConfig())
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "rendering", "assemble request", "render request rejected", err)
	}

	videoPath := filepath.Join(r.cfg.Paths.OutputDir, item.ID+".mp4")
	if err := r.composer.Compose(ctx, *req, videoPath); err != nil {
		return "", err
	}
	if err := r.store.RecordVideo(ctx, item.ID, videoPath); err != nil {
		return "", fmt.Errorf("record video artifact: %w", err)
	}
	logger.Info("video rendered", logging.String("path", videoPath))
	return videoPath, nil
}

func (r *Runner) publishStage(ctx context.Context, item *ledger.Item, videoPath string) error {
	ctx = services.WithStage(ctx, "publishing")
	logger := logging.WithContext(ctx, r.logger)

	if err := r.store.MarkStatus(ctx, item.ID, ledger.StatusPublishing); err != nil {
		return fmt.Errorf("advance to publishing: %w", err)
	}

	ref, err := r.publisher.Publish(ctx, item, videoPath)
	if err != nil {
		return err
	}
	if err := r.store.MarkDone(ctx, item.ID, ref); err != nil {
		return fmt.Errorf("finalize item: %w", err)
	}
	logger.Info("poem published",
		logging.String("target", r.publisher.Target()),
		logging.String("output_ref", ref))

	if err := r.notifier.NotifyItemCompleted(ctx, item.Title, ref); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}
	return nil
}
