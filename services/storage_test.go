package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	tempDir := t.TempDir()
	storage := NewLocalStorage(tempDir)
	ctx := context.Background()
	content := "hello storage"
	key := "leads/l1/verification/car/vehicle/rc_book/file.pdf"

	t.Run("UploadReader creates file", func(t *testing.T) {
		result, err := storage.UploadReader(ctx, strings.NewReader(content), key, "application/pdf", int64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, key, result.Key)
		assert.Equal(t, "file.pdf", result.FileName)
		assert.Equal(t, int64(len(content)), result.FileSize)
		assert.Equal(t, "application/pdf", result.MimeType)

		got, err := os.ReadFile(filepath.Join(tempDir, key))
		require.NoError(t, err)
		assert.Equal(t, content, string(got))
	})

	t.Run("Upload keeps the original name", func(t *testing.T) {
		result, err := storage.Upload(ctx, pdfFile(t, "Policy Copy.pdf"), "leads/l1/policy.pdf")
		require.NoError(t, err)
		assert.Equal(t, "Policy Copy.pdf", result.FileOriginalName)
		assert.Equal(t, "application/pdf", result.MimeType)
		assert.NotEmpty(t, result.URL)
	})

	t.Run("Delete removes file", func(t *testing.T) {
		require.NoError(t, storage.Delete(ctx, key))
		_, err := os.Stat(filepath.Join(tempDir, key))
		assert.True(t, os.IsNotExist(err))

		// deleting twice is not an error
		assert.NoError(t, storage.Delete(ctx, key))
	})

	t.Run("Public URL", func(t *testing.T) {
		expected := "/" + filepath.ToSlash(filepath.Join(tempDir, "some/key"))
		assert.Equal(t, expected, storage.GetPublicURL("some/key"))
	})
}

func TestKeyGeneration(t *testing.T) {
	t.Run("GenerateStorageKey", func(t *testing.T) {
		key := GenerateStorageKey("prefix", "contract.PDF")
		assert.True(t, strings.HasPrefix(key, "prefix/"))
		assert.True(t, strings.HasSuffix(key, ".pdf"))
		parts := strings.Split(filepath.Base(key), "_")
		assert.Len(t, parts, 2)
	})

	t.Run("GenerateVerificationDocumentKey", func(t *testing.T) {
		key := GenerateVerificationDocumentKey("l1", "car", "vehicle", "RC Book", "rc.jpg")
		assert.True(t, strings.HasPrefix(key, "leads/l1/verification/car/vehicle/rc_book/"))
		assert.True(t, strings.HasSuffix(key, ".jpg"))
	})

	t.Run("Unique keys", func(t *testing.T) {
		a := GenerateVerificationDocumentKey("l1", "car", "vehicle", "RC Book", "rc.jpg")
		b := GenerateVerificationDocumentKey("l1", "car", "vehicle", "RC Book", "rc.jpg")
		assert.NotEqual(t, a, b)
	})
}

func TestIsConfigured(t *testing.T) {
	ls := NewLocalStorage(t.TempDir())
	assert.True(t, ls.IsConfigured())

	r2 := &R2Storage{bucket: "test-bucket", client: nil}
	assert.False(t, r2.IsConfigured())
}
