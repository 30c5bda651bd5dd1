package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memoryStore struct {
	items  map[string]string
	mutex  sync.RWMutex
	closed bool
}

// NewMemory builds a process-local store. Entries do not survive a restart.
func NewMemory(Config) Store {
	return &memoryStore{items: make(map[string]string)}
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key required")
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return fmt.Errorf("memory store closed")
	}
	s.items[key] = value
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mutex.RLock()
	v, ok := s.items[key]
	s.mutex.RUnlock()
	return v, ok, nil
}

func (s *memoryStore) Remove(_ context.Context, keys ...string) error {
	s.mutex.Lock()
	for _, k := range keys {
		delete(s.items, k)
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Keys(_ context.Context) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return map[string]any{
		"type":  DriverMemory,
		"total": len(s.items),
	}, nil
}

func (s *memoryStore) Close(context.Context) error {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()
	return nil
}
