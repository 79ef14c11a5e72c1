package storage_test

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/pkg/storage"
)

// fileHeader builds a real multipart.FileHeader the way an HTTP upload would.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func TestSaveKeepsExtensionAndContent(t *testing.T) {
	store := storage.New(t.TempDir())

	name, err := store.Save(fileHeader(t, "report.pdf", []byte("pdf-content")))
	require.NoError(t, err)
	assert.Equal(t, ".pdf", filepath.Ext(name))

	raw, err := os.ReadFile(store.Path(name))
	require.NoError(t, err)
	assert.Equal(t, "pdf-content", string(raw))
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	store := storage.New(t.TempDir())

	first, err := store.Save(fileHeader(t, "a.png", []byte("one")))
	require.NoError(t, err)
	second, err := store.Save(fileHeader(t, "a.png", []byte("two")))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.True(t, store.Exists(first))
	assert.True(t, store.Exists(second))
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	store := storage.New(dir)

	name, err := store.Save(fileHeader(t, "x.jpg", []byte("jpg")))
	require.NoError(t, err)
	assert.True(t, store.Exists(name))
}

func TestRemove(t *testing.T) {
	store := storage.New(t.TempDir())

	name, err := store.Save(fileHeader(t, "gone.png", []byte("bye")))
	require.NoError(t, err)
	require.NoError(t, store.Remove(name))
	assert.False(t, store.Exists(name))

	// removing what is already gone is not an error
	assert.NoError(t, store.Remove(name))
	assert.NoError(t, store.Remove(""))
}
