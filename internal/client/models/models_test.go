package models

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRecordFromDocument(t *testing.T) {
	doc := documents.Document{ID: "f1", Data: map[string]any{
		"name":        "a.txt",
		"size":        float64(12),
		"uploadedBy":  "a@example.com",
		"uploadedAt":  "2026-01-02T03:04:05Z",
		"downloadURL": "https://blob/a.txt",
	}}

	want := FileRecord{
		ID:          "f1",
		Name:        "a.txt",
		Size:        12,
		UploadedBy:  "a@example.com",
		UploadedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		DownloadURL: "https://blob/a.txt",
	}
	assert.Empty(t, cmp.Diff(want, FileRecordFromDocument(doc)))
	assert.Equal(t, "a@example.com/a.txt", want.BlobPath())
}

func TestFileRecordState(t *testing.T) {
	assert.Equal(t, FileCreated, FileRecord{}.State(false))
	assert.Equal(t, FileUploading, FileRecord{}.State(true))
	assert.Equal(t, FileComplete, FileRecord{DownloadURL: "u"}.State(true))
	assert.Equal(t, FileComplete, FileRecord{DownloadURL: "u"}.State(false))
}

func TestNewFileData_StampedByServer(t *testing.T) {
	data := NewFileData("a.txt", 3, "a@example.com")

	assert.True(t, documents.IsServerTimestamp(data[FieldUploadedAt]))
	_, hasURL := data[FieldDownloadURL]
	assert.False(t, hasURL)

	norm, err := documents.Normalize(data)
	require.NoError(t, err)
	assert.Equal(t, float64(3), norm[FieldSize])
}

func TestUserRecordFromDocument(t *testing.T) {
	doc := documents.Document{ID: "u1", Data: map[string]any{
		"displayName": "Ann",
		"email":       "a@example.com",
		"text":        "hello",
		"createdAt":   "2026-01-02T03:04:05Z",
	}}

	u := UserRecordFromDocument(doc)
	assert.Equal(t, "u1", u.UID)
	assert.Equal(t, "Ann", u.DisplayName)
	assert.Equal(t, "hello", u.Text)
	assert.True(t, u.UpdatedAt.IsZero())
	assert.Equal(t, 2026, u.CreatedAt.Year())

	patch := TextPatch("x")
	assert.Equal(t, "x", patch[FieldText])
	assert.True(t, documents.IsServerTimestamp(patch[FieldUpdatedAt]))
}

func TestLocalFiles(t *testing.T) {
	p := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(p, []byte("jpeg"), 0o600))

	f, err := LocalFileFromPath(p)
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", f.Name)
	assert.Equal(t, int64(4), f.Size)

	rc, err := f.Open()
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "jpeg", string(b))

	_, err = LocalFileFromPath(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)

	m := LocalFileFromBytes("m.txt", []byte("abc"))
	assert.Equal(t, int64(3), m.Size)
}
