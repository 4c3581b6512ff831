package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-vault/core"
)

const credentialCacheKeyPrefix = "go-vault::credential_store::v1"

// CachedCredentialStore is a read-through cache in front of another
// CredentialStore. Writes go to the base store first and then evict.
type CachedCredentialStore struct {
	base  core.CredentialStore
	cache repositorycache.CacheService
}

type cachedEntry struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

func NewCachedCredentialStore(
	base core.CredentialStore,
	cacheService repositorycache.CacheService,
) (*CachedCredentialStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base credential store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: credential cache service is required")
	}
	return &CachedCredentialStore{base: base, cache: cacheService}, nil
}

// CredentialCacheKey returns go-vault::credential_store::v1::<escaped key>.
func CredentialCacheKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("sqlstore: key is required")
	}
	return credentialCacheKeyPrefix + "::" + url.PathEscape(key), nil
}

func (s *CachedCredentialStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", false, fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	cacheKey, err := CredentialCacheKey(key)
	if err != nil {
		return "", false, err
	}
	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedEntry, error) {
		value, found, fetchErr := s.base.Get(ctx, key)
		if fetchErr != nil {
			return cachedEntry{}, fetchErr
		}
		return cachedEntry{Value: value, Found: found}, nil
	})
	if err != nil {
		return "", false, err
	}
	return entry.Value, entry.Found, nil
}

func (s *CachedCredentialStore) Set(ctx context.Context, key string, value any) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.Set(ctx, key, value); err != nil {
		return err
	}
	return s.evict(ctx, key)
}

func (s *CachedCredentialStore) Pop(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", false, fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	value, found, err := s.base.Pop(ctx, key)
	if err != nil {
		return "", false, err
	}
	if err := s.evict(ctx, key); err != nil {
		return "", false, err
	}
	return value, found, nil
}

func (s *CachedCredentialStore) Remove(ctx context.Context, key string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.Remove(ctx, key); err != nil {
		return err
	}
	return s.evict(ctx, key)
}

func (s *CachedCredentialStore) evict(ctx context.Context, key string) error {
	cacheKey, err := CredentialCacheKey(key)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}
