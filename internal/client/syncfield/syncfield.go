// Package syncfield keeps local editable state in step with live documents:
// a debounced text field backed by users/<uid> and a file list backed by the
// caller's files records and their blobs.
package syncfield

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/sendit/internal/client/client"
	"github.com/dmitrijs2005/sendit/internal/client/live"
	"github.com/dmitrijs2005/sendit/internal/client/models"
	"github.com/dmitrijs2005/sendit/internal/client/upload"
	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/dmitrijs2005/sendit/internal/logging"
	"github.com/dmitrijs2005/sendit/internal/rpc"
	"github.com/sethvargo/go-retry"
)

// ErrNoIdentity is returned by write actions when nobody is signed in.
var ErrNoIdentity = errors.New("not signed in")

// DocumentStore is the document API the controllers use.
type DocumentStore interface {
	WatchDocument(ctx context.Context, collection, id string) (*live.Subscription[rpc.DocumentSnapshot], error)
	WatchQuery(ctx context.Context, collection string, filters ...documents.Filter) (*live.Subscription[rpc.QuerySnapshot], error)
	SetDocument(ctx context.Context, collection, id string, data map[string]any, merge bool) error
	AddDocument(ctx context.Context, collection string, data map[string]any) (string, error)
	DeleteDocument(ctx context.Context, collection, id string) error
	QueryDocuments(ctx context.Context, collection string, filters ...documents.Filter) ([]documents.Document, error)
}

// BlobStore is the blob API the file controller uses.
type BlobStore interface {
	CreateUploadURL(ctx context.Context, path string) (string, error)
	GetDownloadURL(ctx context.Context, path string) (string, error)
	DeleteObject(ctx context.Context, path string) error
}

// Uploader sends one local file to a presigned URL.
type Uploader interface {
	Put(ctx context.Context, url string, f models.LocalFile, progress upload.ProgressFunc) error
}

func defaultBackoff() retry.Backoff {
	b := retry.NewExponential(250 * time.Millisecond)
	b = retry.WithJitterPercent(10, b)
	return retry.WithCappedDuration(30*time.Second, b)
}

// follow applies every snapshot of sub and reopens the channel when it ends,
// until ctx is done or the channel cannot be reopened. use is called with
// each reopened subscription. The backoff starts over once a reopened
// channel has delivered a snapshot.
func follow[T any](
	ctx context.Context,
	sub *live.Subscription[T],
	open func(context.Context) (*live.Subscription[T], error),
	apply func(T),
	use func(*live.Subscription[T]),
	newBackoff func() retry.Backoff,
	logger logging.Logger,
) error {
	b := newBackoff()
	for {
		delivered := false
		for snap := range sub.Snapshots() {
			delivered = true
			apply(snap)
		}
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn(ctx, "live channel ended, reopening", "error", sub.Err())

		if delivered {
			b = newBackoff()
		}
		next, err := reopen(ctx, b, open, logger)
		if err != nil {
			return err
		}
		use(next)
		sub = next
	}
}

func reopen[T any](ctx context.Context, b retry.Backoff, open func(context.Context) (*live.Subscription[T], error), logger logging.Logger) (*live.Subscription[T], error) {
	for {
		wait, stop := b.Next()
		if stop {
			return nil, errors.New("gave up reopening live channel")
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}

		sub, err := open(ctx)
		switch {
		case err == nil:
			return sub, nil
		case errors.Is(err, client.ErrUnauthorized), errors.Is(err, client.ErrForbidden):
			return nil, err
		}
		logger.Warn(ctx, "reopen failed", "error", err)
	}
}
