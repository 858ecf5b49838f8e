// Package metadata is the local key-value store that keeps the signed-in
// session (tokens and identity) between CLI runs. Nothing else is cached
// locally.
package metadata

import (
	"context"
)

type Repository interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// SetAll upserts every pair in one transaction.
	SetAll(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
