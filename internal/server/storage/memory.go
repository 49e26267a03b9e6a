package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/dmitrijs2005/masaclient/internal/common"
)

// DownloadPrefix is the route memory objects are served under.
const DownloadPrefix = "/bucket/download/"

type Object struct {
	ContentType string
	Data        []byte
}

type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	baseURL string
}

func NewMemoryStore(publicURL string) *MemoryStore {
	return &MemoryStore{objects: map[string]Object{}, baseURL: strings.TrimRight(publicURL, "/")}
}

func (s *MemoryStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.objects[key] = Object{ContentType: contentType, Data: cp}
	s.mu.Unlock()
	return s.baseURL + DownloadPrefix + key, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	if !ok {
		return Object{}, common.ErrorNotFound
	}
	return o, nil
}
