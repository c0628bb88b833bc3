package evidence

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

const (
	evidenceFilePerms = 0600
	evidenceDirPerms  = 0700
)

// DirStore keeps evidence files in a local directory
type DirStore struct {
	dir string
}

// NewDirStore creates a DirStore, creating dir if needed
func NewDirStore(dir string) (*DirStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve evidence directory: %w", err)
	}
	if err := os.MkdirAll(abs, evidenceDirPerms); err != nil {
		return nil, fmt.Errorf("failed to create evidence directory: %w", err)
	}
	return &DirStore{dir: abs}, nil
}

// Upload writes data to a new file and returns its file:// URL
func (s *DirStore) Upload(ctx context.Context, data []byte, nameHint string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, objectName(nameHint))
	if err := os.WriteFile(path, data, evidenceFilePerms); err != nil {
		return "", fmt.Errorf("failed to write evidence file: %w", err)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String(), nil
}
