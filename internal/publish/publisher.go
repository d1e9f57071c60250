package publish

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"versecast/internal/config"
	"versecast/internal/ledger"
	"versecast/internal/logging"
	driveclient "versecast/internal/services/drive"
	ytclient "versecast/internal/services/youtube"
)

// Publisher delivers a finished video somewhere and returns a stable
// reference for the ledger's output_ref column.
type Publisher interface {
	// Publish uploads the rendered video for an item. The returned
	// reference identifies the published artifact (a URL or file path).
	Publish(ctx context.Context, item *ledger.Item, videoPath string) (string, error)
	// Target names the destination for logging and CLI output.
	Target() string
}

// NewFromConfig selects a publisher for the configured target. The "none"
// target keeps videos on local disk and records their path as the reference.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Publish.Target)) {
	case "", "none":
		return NewNop(), nil
	case "drive":
		client, err := driveclient.NewClient(ctx, cfg.Publish.Drive.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("configure drive publisher: %w", err)
		}
		return NewDrive(client, cfg.Publish.Drive.FolderID, logger), nil
	case "youtube":
		client, err := ytclient.NewClient(ctx, cfg.Publish.YouTube.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("configure youtube publisher: %w", err)
		}
		return NewYouTube(client, cfg.Publish.YouTube, logger), nil
	default:
		return nil, fmt.Errorf("unknown publish target %q", cfg.Publish.Target)
	}
}

type nopPublisher struct{}

// NewNop returns a publisher that leaves videos in place.
func NewNop() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(_ context.Context, _ *ledger.Item, videoPath string) (string, error) {
	return videoPath, nil
}

func (nopPublisher) Target() string { return "none" }

// DriveUploader is the slice of the Drive client the publisher needs.
type DriveUploader interface {
	Upload(ctx context.Context, folderID, localPath string) (*driveclient.File, error)
}

type drivePublisher struct {
	client   DriveUploader
	folderID string
	logger   *slog.Logger
}

// NewDrive returns a publisher that uploads into a Drive folder.
func NewDrive(client DriveUploader, folderID string, logger *slog.Logger) Publisher {
	return &drivePublisher{
		client:   client,
		folderID: folderID,
		logger:   logging.NewComponentLogger(logger, "publish"),
	}
}

func (p *drivePublisher) Publish(ctx context.Context, item *ledger.Item, videoPath string) (string, error) {
	file, err := p.client.Upload(ctx, p.folderID, videoPath)
	if err != nil {
		return "", Classify(err, "upload to drive")
	}
	p.logger.Info("uploaded video to drive",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("file_id", file.ID))
	if file.WebViewLink != "" {
		return file.WebViewLink, nil
	}
	return "drive://" + file.ID, nil
}

func (p *drivePublisher) Target() string { return "drive" }

// YouTubeUploader is the slice of the YouTube client the publisher needs.
type YouTubeUploader interface {
	Upload(ctx context.Context, videoPath string, meta ytclient.Metadata) (string, string, error)
}

type youtubePublisher struct {
	client YouTubeUploader
	cfg    config.YouTube
	logger *slog.Logger
}

// NewYouTube returns a publisher that uploads to YouTube.
func NewYouTube(client YouTubeUploader, cfg config.YouTube, logger *slog.Logger) Publisher {
	return &youtubePublisher{
		client: client,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "publish"),
	}
}

func (p *youtubePublisher) Publish(ctx context.Context, item *ledger.Item, videoPath string) (string, error) {
	meta := ytclient.Metadata{
		Title:       videoTitle(item),
		Description: videoDescription(item),
		Tags:        []string{"poetry", "poem", item.Author},
		CategoryID:  p.cfg.CategoryID,
		Privacy:     p.cfg.Privacy,
		Language:    item.Language,
	}
	id, url, err := p.client.Upload(ctx, videoPath, meta)
	if err != nil {
		return "", Classify(err, "upload to youtube")
	}
	p.logger.Info("uploaded video to youtube",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("video_id", id))
	return url, nil
}

func (p *youtubePublisher) Target() string { return "youtube" }

func videoTitle(item *ledger.Item) string {
	if item.Author != "" {
		return fmt.Sprintf("%s - %s", item.Title, item.Author)
	}
	return item.Title
}

func videoDescription(item *ledger.Item) string {
	var b strings.Builder
	b.WriteString(item.Title)
	if item.Author != "" {
		b.WriteString("\npor ")
		b.WriteString(item.Author)
	}
	b.WriteString("\n\n#poetry #poem #shorts")
	return b.String()
}
