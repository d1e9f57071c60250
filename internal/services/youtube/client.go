package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Metadata carries the listing fields for an uploaded video.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
	Language    string
}

// Client wraps the YouTube Data API v3 for short-form uploads.
type Client struct {
	service *youtube.Service
}

// tokenFile mirrors the JSON written by the OAuth consent flow.
type tokenFile struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

// NewClient authenticates with a stored refresh token. The token file holds
// the OAuth client pair plus the refresh token obtained from a one-time
// consent flow.
func NewClient(ctx context.Context, tokenPath string) (*Client, error) {
	if strings.TrimSpace(tokenPath) == "" {
		return nil, fmt.Errorf("youtube: token file required")
	}
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("youtube: read token file: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("youtube: parse token file: %w", err)
	}
	if tf.ClientID == "" || tf.ClientSecret == "" || tf.RefreshToken == "" {
		return nil, fmt.Errorf("youtube: token file missing client_id, client_secret, or refresh_token")
	}

	conf := &oauth2.Config{
		ClientID:     tf.ClientID,
		ClientSecret: tf.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	source := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: tf.RefreshToken})

	service, err := youtube.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("youtube: create service: %w", err)
	}
	return &Client{service: service}, nil
}

// Upload publishes a local video file and returns its video ID and watch URL.
func (c *Client) Upload(ctx context.Context, videoPath string, meta Metadata) (string, string, error) {
	handle, err := os.Open(videoPath)
	if err != nil {
		return "", "", fmt.Errorf("youtube: open video file: %w", err)
	}
	defer handle.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           meta.CategoryID,
			DefaultLanguage:      meta.Language,
			DefaultAudioLanguage: meta.Language,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: meta.Privacy,
		},
	}

	call := c.service.Videos.Insert([]string{"snippet", "status"}, video).
		Context(ctx).
		Media(handle)

	uploaded, err := call.Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube: upload %s: %w", meta.Title, err)
	}
	return uploaded.Id, fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id), nil
}
