// Package metadata is a small key/value table in the local session
// database. Values are opaque bytes; callers own the encoding.
package metadata

import (
	"context"
	"time"
)

// Record is a stored value with the time it was last written.
type Record struct {
	Value     []byte
	UpdatedAt time.Time
}

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
