package services

import (
	"context"

	"github.com/dmitrijs2005/sendit/internal/server/auth"
	"github.com/dmitrijs2005/sendit/internal/server/blobs"
)

// BlobService checks that callers only touch objects under their own
// e-mail prefix before handing out URLs.
type BlobService struct {
	store blobs.Store
}

func NewBlobService(store blobs.Store) *BlobService {
	return &BlobService{store: store}
}

func (s *BlobService) CreateUploadURL(ctx context.Context, p auth.Principal, path string) (string, error) {
	if err := blobs.CheckPath(path, p.Email); err != nil {
		return "", err
	}
	return s.store.CreateUploadURL(ctx, path)
}

func (s *BlobService) GetDownloadURL(ctx context.Context, p auth.Principal, path string) (string, error) {
	if err := blobs.CheckPath(path, p.Email); err != nil {
		return "", err
	}
	return s.store.GetDownloadURL(ctx, path)
}

func (s *BlobService) DeleteObject(ctx context.Context, p auth.Principal, path string) error {
	if err := blobs.CheckPath(path, p.Email); err != nil {
		return err
	}
	return s.store.DeleteObject(ctx, path)
}
