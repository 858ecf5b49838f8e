package client

import (
	"context"

	"github.com/dmitrijs2005/sendit/internal/client/live"
	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/dmitrijs2005/sendit/internal/rpc"
)

// Client is the full backend API as seen by the CLI.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	SignInURL(ctx context.Context) (url string, state string, err error)
	CompleteSignIn(ctx context.Context, state string) (*rpc.Identity, error)
	SignOut(ctx context.Context) error
	SetTokens(accessToken, refreshToken string)
	Tokens() (accessToken, refreshToken string)
	OnTokensRefreshed(fn func(accessToken, refreshToken string))

	GetDocument(ctx context.Context, collection, id string) (*rpc.DocumentSnapshot, error)
	SetDocument(ctx context.Context, collection, id string, data map[string]any, merge bool) error
	AddDocument(ctx context.Context, collection string, data map[string]any) (string, error)
	DeleteDocument(ctx context.Context, collection, id string) error
	QueryDocuments(ctx context.Context, collection string, filters ...documents.Filter) ([]documents.Document, error)
	WatchDocument(ctx context.Context, collection, id string) (*live.Subscription[rpc.DocumentSnapshot], error)
	WatchQuery(ctx context.Context, collection string, filters ...documents.Filter) (*live.Subscription[rpc.QuerySnapshot], error)

	CreateUploadURL(ctx context.Context, path string) (string, error)
	GetDownloadURL(ctx context.Context, path string) (string, error)
	DeleteObject(ctx context.Context, path string) error
}

var _ Client = (*GRPCClient)(nil)
