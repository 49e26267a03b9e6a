package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSession is returned by Store.Load when nothing is stored.
var ErrNoSession = errors.New("no active session")

// Store holds the current credential. Save replaces whatever is stored.
type Store interface {
	Load(ctx context.Context) (*Credential, error)
	Save(ctx context.Context, c Credential) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the credential in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	cur *Credential
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil, ErrNoSession
	}
	c := *m.cur
	return &c, nil
}

func (m *MemoryStore) Save(_ context.Context, c Credential) error {
	m.mu.Lock()
	m.cur = &c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.cur = nil
	m.mu.Unlock()
	return nil
}

// Tokens adapts a Store to gateway.TokenSource. A missing session yields an
// empty token so the request goes out anonymously.
type Tokens struct {
	Store Store
}

func (t Tokens) AccessToken(ctx context.Context) (string, error) {
	c, err := t.Store.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return c.AccessToken, nil
}
