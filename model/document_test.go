package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentFromFile(t *testing.T) {
	t.Run("Successfully reads file and creates document", func(t *testing.T) {
		tmpDir := t.TempDir()
		filePath := filepath.Join(tmpDir, "notes.txt")
		content := "User works at Acme Corporation"
		err := os.WriteFile(filePath, []byte(content), 0644)
		require.NoError(t, err)

		metadata := Metadata{"origin": "upload"}
		doc, err := NewDocumentFromFile("user-1", filePath, metadata)

		require.NoError(t, err)
		assert.Equal(t, "user-1", doc.UserID, "UserID should be set")
		assert.Equal(t, "notes", doc.Title, "Title should be filename without extension")
		assert.Equal(t, filePath, doc.Source, "Source should be file path")
		assert.Equal(t, content, doc.Content, "Content should match file content")
		assert.Equal(t, "upload", doc.Metadata["origin"])
	})

	t.Run("Returns error for non-existent file", func(t *testing.T) {
		doc, err := NewDocumentFromFile("user-1", "/non/existent/file.txt", nil)

		require.Error(t, err)
		assert.Nil(t, doc)
	})

	t.Run("Handles file without extension", func(t *testing.T) {
		tmpDir := t.TempDir()
		filePath := filepath.Join(tmpDir, "README")
		err := os.WriteFile(filePath, []byte("readme content"), 0644)
		require.NoError(t, err)

		doc, err := NewDocumentFromFile("user-1", filePath, nil)

		require.NoError(t, err)
		assert.Equal(t, "README", doc.Title, "Title should be full filename when no extension")
	})

	t.Run("Handles file with multiple dots in name", func(t *testing.T) {
		tmpDir := t.TempDir()
		filePath := filepath.Join(tmpDir, "meeting.2026.01.txt")
		err := os.WriteFile(filePath, []byte("minutes"), 0644)
		require.NoError(t, err)

		doc, err := NewDocumentFromFile("user-1", filePath, nil)

		require.NoError(t, err)
		assert.Equal(t, "meeting.2026.01", doc.Title, "Title should remove only last extension")
	})

	t.Run("Handles nil metadata", func(t *testing.T) {
		tmpDir := t.TempDir()
		filePath := filepath.Join(tmpDir, "plain.txt")
		err := os.WriteFile(filePath, []byte("content"), 0644)
		require.NoError(t, err)

		doc, err := NewDocumentFromFile("user-1", filePath, nil)

		require.NoError(t, err)
		assert.Nil(t, doc.Metadata)
	})
}
