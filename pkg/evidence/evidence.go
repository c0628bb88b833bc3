// Package evidence stores check-in and check-out photos and hands back an opaque reference.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyUpload is returned when an upload carries no data
var ErrEmptyUpload = errors.New("evidence upload is empty")

// Store persists evidence bytes and returns an opaque URL referencing them
type Store interface {
	Upload(ctx context.Context, data []byte, nameHint string) (string, error)
}

// Upload is a photo waiting to be stored
type Upload struct {
	Data     []byte
	NameHint string
}

// objectName builds a unique, filesystem-safe name that keeps the hint's extension
func objectName(nameHint string) string {
	base := filepath.Base(strings.TrimSpace(nameHint))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	id := uuid.New().String()
	if b.Len() == 0 {
		return id
	}
	return fmt.Sprintf("%s-%s", id, b.String())
}
