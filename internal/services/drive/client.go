package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// File describes an uploaded or discovered Drive file.
type File struct {
	ID          string
	Name        string
	WebViewLink string
}

// Client wraps the Google Drive v3 API for folder-scoped uploads.
type Client struct {
	service *drive.Service
}

// NewClient authenticates against Drive using a credentials file
// (service account JSON or an authorized user file).
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, fmt.Errorf("drive: credentials file required")
	}
	service, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("drive: create service: %w", err)
	}
	return &Client{service: service}, nil
}

// FindByName locates a file by exact name inside a folder. Returns nil when
// no match exists.
func (c *Client) FindByName(ctx context.Context, folderID, name string) (*File, error) {
	query := fmt.Sprintf("'%s' in parents and name = '%s' and trashed = false",
		escapeQuery(folderID), escapeQuery(name))
	list, err := c.service.Files.List().
		Context(ctx).
		Q(query).
		Fields("files(id, name, webViewLink)").
		PageSize(1).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive: list files: %w", err)
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	found := list.Files[0]
	return &File{ID: found.Id, Name: found.Name, WebViewLink: found.WebViewLink}, nil
}

// Upload sends a local file into the folder. When a file with the same name
// already exists its content is replaced, so re-publishing an item never
// accumulates duplicates.
func (c *Client) Upload(ctx context.Context, folderID, localPath string) (*File, error) {
	handle, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("drive: open local file: %w", err)
	}
	defer handle.Close()

	name := filepath.Base(localPath)
	existing, err := c.FindByName(ctx, folderID, name)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		updated, err := c.service.Files.Update(existing.ID, &drive.File{}).
			Context(ctx).
			Media(handle).
			Fields("id, name, webViewLink").
			Do()
		if err != nil {
			return nil, fmt.Errorf("drive: replace %s: %w", name, err)
		}
		return &File{ID: updated.Id, Name: updated.Name, WebViewLink: updated.WebViewLink}, nil
	}

	created, err := c.service.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{folderID},
	}).
		Context(ctx).
		Media(handle).
		Fields("id, name, webViewLink").
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive: upload %s: %w", name, err)
	}
	return &File{ID: created.Id, Name: created.Name, WebViewLink: created.WebViewLink}, nil
}

func escapeQuery(value string) string {
	return strings.ReplaceAll(value, "'", `\'`)
}
