// Package storage keeps uploaded avatar files for the development gateway,
// either in memory or in an S3 compatible bucket.
package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/server/config"
	"github.com/google/uuid"
)

// AvatarStore saves a file and returns the URL it can be downloaded from.
type AvatarStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

var now = time.Now

// NewKey builds a unique object key for an upload of ownerID.
func NewKey(ownerID, filename string) string {
	d := now()
	return fmt.Sprintf("users/%s/%d/%d/%d/%v%s", ownerID, d.Year(), d.Month(), d.Day(), uuid.New(), path.Ext(filename))
}

// New picks the backend named by cfg.Storage.
func New(cfg *config.Config) (AvatarStore, error) {
	switch cfg.Storage {
	case config.StorageMemory, "":
		return NewMemoryStore(cfg.PublicURL), nil
	case config.StorageS3:
		return NewS3Store(cfg), nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}
