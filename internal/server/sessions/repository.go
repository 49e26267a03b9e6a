// Package sessions keeps the login sessions issued by the gateway.
package sessions

import (
	"context"
	"time"
)

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Repository interface {
	Create(ctx context.Context, userID string, validity time.Duration) (*Session, error)
	// Get returns common.ErrorNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteByUser ends every session of userID.
	DeleteByUser(ctx context.Context, userID string) error
}
