// Package models defines the records the client reads and writes.
package models

import (
	"time"

	"github.com/dmitrijs2005/sendit/internal/documents"
)

// Field names of a files/<id> document.
const (
	FieldName        = "name"
	FieldSize        = "size"
	FieldUploadedBy  = "uploadedBy"
	FieldUploadedAt  = "uploadedAt"
	FieldDownloadURL = "downloadURL"
)

// FileState is the lifecycle stage of a FileRecord as shown to the user.
type FileState string

const (
	FileCreated   FileState = "created"
	FileUploading FileState = "uploading"
	FileComplete  FileState = "complete"
)

// FileRecord is a files/<id> document. DownloadURL is empty until the blob
// upload has finished.
type FileRecord struct {
	ID          string
	Name        string
	Size        int64
	UploadedBy  string
	UploadedAt  time.Time
	DownloadURL string
}

// FileRecordFromDocument reads a record from its stored fields.
func FileRecordFromDocument(doc documents.Document) FileRecord {
	return FileRecord{
		ID:          doc.ID,
		Name:        documents.String(doc.Data, FieldName),
		Size:        documents.Int64(doc.Data, FieldSize),
		UploadedBy:  documents.String(doc.Data, FieldUploadedBy),
		UploadedAt:  documents.Time(doc.Data, FieldUploadedAt),
		DownloadURL: documents.String(doc.Data, FieldDownloadURL),
	}
}

// NewFileData is the payload of a freshly created record: no locator, the
// upload time is stamped by the server.
func NewFileData(name string, size int64, uploadedBy string) map[string]any {
	return map[string]any{
		FieldName:       name,
		FieldSize:       size,
		FieldUploadedBy: uploadedBy,
		FieldUploadedAt: documents.ServerTimestamp(),
	}
}

// State derives the lifecycle stage. hasProgress reports whether this
// client holds a progress entry for the record.
func (f FileRecord) State(hasProgress bool) FileState {
	switch {
	case f.DownloadURL != "":
		return FileComplete
	case hasProgress:
		return FileUploading
	default:
		return FileCreated
	}
}

// BlobPath is where the record's content lives in the blob store.
func (f FileRecord) BlobPath() string {
	return BlobPath(f.UploadedBy, f.Name)
}

// BlobPath joins the owner e-mail and file name into a blob store path.
func BlobPath(email, name string) string {
	return email + "/" + name
}
