package evidence

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStore_Upload(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Upload(context.Background(), []byte("jpeg bytes"), "checkin.jpg")
	require.NoError(t, err)

	u, err := url.Parse(ref)
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.True(t, strings.HasSuffix(u.Path, "-checkin.jpg"))

	data, err := os.ReadFile(u.Path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
}

func TestDirStore_UploadsAreUnique(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	first, err := store.Upload(context.Background(), []byte("a"), "photo.jpg")
	require.NoError(t, err)
	second, err := store.Upload(context.Background(), []byte("b"), "photo.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDirStore_EmptyUpload(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), nil, "photo.jpg")
	assert.ErrorIs(t, err, ErrEmptyUpload)
}

func TestDirStore_CancelledContext(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Upload(ctx, []byte("data"), "photo.jpg")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		name     string
		hint     string
		suffix   string
		noSuffix bool
	}{
		{name: "keeps extension", hint: "start.png", suffix: "-start.png"},
		{name: "strips directories", hint: "../../etc/passwd", suffix: "-passwd"},
		{name: "replaces unsafe characters", hint: "my photo!.jpg", suffix: "-my_photo_.jpg"},
		{name: "empty hint", hint: "", noSuffix: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := objectName(tt.hint)
			assert.NotContains(t, name, "/")
			if tt.noSuffix {
				assert.Len(t, name, 36)
				return
			}
			assert.True(t, strings.HasSuffix(name, tt.suffix), name)
		})
	}
}
