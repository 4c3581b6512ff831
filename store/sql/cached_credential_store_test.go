package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-vault/core"
)

type stubCredentialStore struct {
	mu       sync.Mutex
	items    map[string]string
	getCalls int
	setErr   error
}

func newStubCredentialStore() *stubCredentialStore {
	return &stubCredentialStore{items: map[string]string{}}
}

func (s *stubCredentialStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	value, ok := s.items[key]
	return value, ok, nil
}

func (s *stubCredentialStore) Set(_ context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	encoded, err := core.EncodeStoreValue(value)
	if err != nil {
		return err
	}
	s.items[key] = encoded
	return nil
}

func (s *stubCredentialStore) Pop(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.items[key]
	delete(s.items, key)
	return value, ok, nil
}

func (s *stubCredentialStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func TestCachedCredentialStore_Get_MissFetchThenHit(t *testing.T) {
	ctx := context.Background()
	base := newStubCredentialStore()
	base.items[core.StoreKeyApplicationID] = "app_1"

	store, err := NewCachedCredentialStore(base, newTestCacheService(t))
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	for i := 0; i < 2; i++ {
		value, ok, err := store.Get(ctx, core.StoreKeyApplicationID)
		if err != nil || !ok || value != "app_1" {
			t.Fatalf("get %d: value=%q ok=%v err=%v", i, value, ok, err)
		}
	}
	if base.getCalls != 1 {
		t.Fatalf("expected second get to be a cache hit, base get calls=%d", base.getCalls)
	}
}

func TestCachedCredentialStore_WritesEvict(t *testing.T) {
	ctx := context.Background()
	base := newStubCredentialStore()
	store, err := NewCachedCredentialStore(base, newTestCacheService(t))
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	if _, ok, _ := store.Get(ctx, core.StoreKeyRedirectURL); ok {
		t.Fatalf("expected initial miss")
	}
	if err := store.Set(ctx, core.StoreKeyRedirectURL, "https://app/cb"); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, _ := store.Get(ctx, core.StoreKeyRedirectURL)
	if !ok || value != "https://app/cb" {
		t.Fatalf("expected set to evict cached miss, got %q ok=%v", value, ok)
	}

	popped, ok, err := store.Pop(ctx, core.StoreKeyRedirectURL)
	if err != nil || !ok || popped != "https://app/cb" {
		t.Fatalf("pop: value=%q ok=%v err=%v", popped, ok, err)
	}
	if _, ok, _ := store.Get(ctx, core.StoreKeyRedirectURL); ok {
		t.Fatalf("expected pop to evict cached value")
	}
}

func TestCachedCredentialStore_SetErrorKeepsCache(t *testing.T) {
	ctx := context.Background()
	base := newStubCredentialStore()
	base.items["k"] = "v1"
	store, _ := NewCachedCredentialStore(base, newTestCacheService(t))

	if _, _, err := store.Get(ctx, "k"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	boom := errors.New("write failed")
	base.setErr = boom
	if err := store.Set(ctx, "k", "v2"); !errors.Is(err, boom) {
		t.Fatalf("expected base set error, got %v", err)
	}
	value, _, _ := store.Get(ctx, "k")
	if value != "v1" {
		t.Fatalf("expected cached value to survive failed write, got %q", value)
	}
}

func TestCredentialCacheKey(t *testing.T) {
	key, err := CredentialCacheKey("session 1:vault.oauth_state")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if key != "go-vault::credential_store::v1::session%201:vault.oauth_state" {
		t.Fatalf("unexpected cache key %q", key)
	}
	if _, err := CredentialCacheKey(" "); err == nil {
		t.Fatalf("expected empty key error")
	}
}

func newTestCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}
