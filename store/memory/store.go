// Package memorystore provides the default session-scoped CredentialStore.
package memorystore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-vault/core"
)

type Store struct {
	mu     sync.RWMutex
	prefix string
	items  map[string]string
}

type Option func(*Store)

// WithKeyPrefix namespaces every key, so several sessions can share one
// process without colliding.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = strings.TrimSpace(prefix)
	}
}

func New(opts ...Option) *Store {
	store := &Store{items: map[string]string{}}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	if s == nil {
		return "", false, fmt.Errorf("memorystore: store is nil")
	}
	storeKey, err := s.key(key)
	if err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[storeKey]
	return value, ok, nil
}

func (s *Store) Set(_ context.Context, key string, value any) error {
	if s == nil {
		return fmt.Errorf("memorystore: store is nil")
	}
	storeKey, err := s.key(key)
	if err != nil {
		return err
	}
	encoded, err := core.EncodeStoreValue(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[storeKey] = encoded
	return nil
}

// Pop reads and deletes key under a single lock.
func (s *Store) Pop(_ context.Context, key string) (string, bool, error) {
	if s == nil {
		return "", false, fmt.Errorf("memorystore: store is nil")
	}
	storeKey, err := s.key(key)
	if err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.items[storeKey]
	if ok {
		delete(s.items, storeKey)
	}
	return value, ok, nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	if s == nil {
		return fmt.Errorf("memorystore: store is nil")
	}
	storeKey, err := s.key(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, storeKey)
	return nil
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) key(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("memorystore: key is required")
	}
	if s.prefix == "" {
		return key, nil
	}
	return s.prefix + ":" + key, nil
}

var _ core.CredentialStore = (*Store)(nil)
