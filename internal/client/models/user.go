package models

import (
	"time"

	"github.com/dmitrijs2005/sendit/internal/documents"
)

// Field names of a users/<uid> document.
const (
	FieldUID         = "uid"
	FieldDisplayName = "displayName"
	FieldEmail       = "email"
	FieldPhotoURL    = "photoURL"
	FieldText        = "text"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
)

// UserRecord is the users/<uid> document.
type UserRecord struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
	Text        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func UserRecordFromDocument(doc documents.Document) UserRecord {
	return UserRecord{
		UID:         doc.ID,
		DisplayName: documents.String(doc.Data, FieldDisplayName),
		Email:       documents.String(doc.Data, FieldEmail),
		PhotoURL:    documents.String(doc.Data, FieldPhotoURL),
		Text:        documents.String(doc.Data, FieldText),
		CreatedAt:   documents.Time(doc.Data, FieldCreatedAt),
		UpdatedAt:   documents.Time(doc.Data, FieldUpdatedAt),
	}
}

// TextPatch is the merge write issued after a debounced edit.
func TextPatch(text string) map[string]any {
	return map[string]any{
		FieldText:      text,
		FieldUpdatedAt: documents.ServerTimestamp(),
	}
}
