package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/common"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process memory. Emails are matched
// case-insensitively.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: map[string]User{}}
}

func (r *MemoryRepository) Create(_ context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) || (user.Mobile != "" && u.Mobile == user.Mobile) {
			return nil, common.ErrorAlreadyExists
		}
	}

	created := *user
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	r.users[created.ID] = created
	return &created, nil
}

func (r *MemoryRepository) Update(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return common.ErrorNotFound
	}
	for id, u := range r.users {
		if id != user.ID && user.Mobile != "" && u.Mobile == user.Mobile {
			return common.ErrorAlreadyExists
		}
	}
	updated := *user
	updated.UpdatedAt = time.Now()
	r.users[user.ID] = updated
	return nil
}

func (r *MemoryRepository) find(match func(u User) bool) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*User, error) {
	return r.find(func(u User) bool { return u.ID == id })
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	return r.find(func(u User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *MemoryRepository) GetByMobile(_ context.Context, mobile string) (*User, error) {
	return r.find(func(u User) bool { return mobile != "" && u.Mobile == mobile })
}

func (r *MemoryRepository) GetBySocialCode(_ context.Context, code string) (*User, error) {
	return r.find(func(u User) bool { return code != "" && u.SocialCode == code })
}
