package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/common"
	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: map[string]Session{}, now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, userID string, validity time.Duration) (*Session, error) {
	now := r.now()
	s := Session{ID: uuid.NewString(), UserID: userID, CreatedAt: now, ExpiresAt: now.Add(validity)}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return &s, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if !r.now().Before(s.ExpiresAt) {
		delete(r.sessions, id)
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *MemoryRepository) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}
