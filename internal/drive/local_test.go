package drive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLocalSource_ListAndDownload(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "bob")
	writeFile(t, filepath.Join(root, "a.pdf"), "%PDF")
	writeFile(t, filepath.Join(root, "nested", "c.md"), "# carol")
	writeFile(t, filepath.Join(root, "image.png"), "png")
	writeFile(t, filepath.Join(root, ".hidden", "d.txt"), "dave")

	src, err := NewLocalSource(root, true, nil)
	require.NoError(t, err)

	files, err := src.ListFolder(context.Background(), src.Root())
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "a.pdf", files[0].ID)
	assert.Equal(t, constants.MimePDF, files[0].MimeType)
	assert.Equal(t, "b.txt", files[1].ID)
	assert.Equal(t, "nested/c.md", files[2].ID)
	assert.Equal(t, int64(3), files[1].Size)

	b, err := src.Download(context.Background(), "nested/c.md")
	require.NoError(t, err)
	assert.Equal(t, "# carol", string(b))

	b, err = src.Export(context.Background(), "b.txt", constants.MimePlainText)
	require.NoError(t, err)
	assert.Equal(t, "bob", string(b))
}

func TestLocalSource_Errors(t *testing.T) {
	root := t.TempDir()
	src, err := NewLocalSource(root, false, nil)
	require.NoError(t, err)

	_, err = src.ListFolder(context.Background(), "/somewhere/else")
	assert.True(t, errors.Is(err, common.ErrSourceUnavailable))

	_, err = src.Download(context.Background(), "../escape.txt")
	assert.True(t, errors.Is(err, common.ErrFetchFailed))

	_, err = src.Download(context.Background(), "missing.txt")
	assert.True(t, errors.Is(err, common.ErrFetchFailed))

	_, err = src.ResolveShortcut(context.Background(), FileMeta{ID: "x"})
	assert.True(t, errors.Is(err, common.ErrSourceUnavailable))
}
