// Package memory keeps stored objects in process memory.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/strogmv/notifyevents/internal/port"
)

type object struct {
	data        []byte
	contentType string
}

type Storage struct {
	mu      sync.RWMutex
	objects map[string]object
}

func NewStorage() *Storage {
	return &Storage{objects: make(map[string]object)}
}

func (s *Storage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: data, contentType: contentType}
	return key, nil
}

func (s *Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *Storage) GetURL(ctx context.Context, key string) (string, error) {
	return "mem://" + key, nil
}

func (s *Storage) PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	return s.GetURL(ctx, key)
}

// ContentType returns the content type recorded for key.
func (s *Storage) ContentType(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[key].contentType
}

// Keys lists stored keys in order.
func (s *Storage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ port.FileStorage = (*Storage)(nil)
