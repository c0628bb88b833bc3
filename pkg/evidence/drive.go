package evidence

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveStore uploads evidence to a Google Drive folder
type DriveStore struct {
	service  *drive.Service
	folderID string
}

// NewDriveStore creates a DriveStore using an authorised HTTP client
func NewDriveStore(ctx context.Context, httpClient *http.Client, folderID string) (*DriveStore, error) {
	service, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveStore{
		service:  service,
		folderID: folderID,
	}, nil
}

// Upload creates a file in the configured folder and returns its web view link
func (s *DriveStore) Upload(ctx context.Context, data []byte, nameHint string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}

	file := &drive.File{
		Name:     objectName(nameHint),
		MimeType: http.DetectContentType(data),
	}
	if s.folderID != "" {
		file.Parents = []string{s.folderID}
	}

	created, err := s.service.Files.Create(file).
		Media(bytes.NewReader(data)).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload evidence to drive: %w", err)
	}

	if created.WebViewLink != "" {
		return created.WebViewLink, nil
	}
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}
