// Package metadata is a durable key/value table. The credential store keeps
// each session part under its own key here.
package metadata

import (
	"context"
)

// Repository stores opaque byte values under string keys.
//
// Get returns (nil, nil) for a missing key. Delete and Clear never fail
// because of missing keys.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
