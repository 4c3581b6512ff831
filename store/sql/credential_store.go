package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-vault/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CredentialStore persists session values in vault_credential_entries so they
// survive process restarts. Keys are unique; Set upserts.
type CredentialStore struct {
	db     *bun.DB
	repo   repository.Repository[*credentialEntryRecord]
	prefix string
}

type Option func(*CredentialStore)

func WithKeyPrefix(prefix string) Option {
	return func(s *CredentialStore) {
		s.prefix = strings.TrimSpace(prefix)
	}
}

func NewCredentialStore(db *bun.DB, opts ...Option) (*CredentialStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*credentialEntryRecord](db, credentialEntryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid credential entry repository wiring: %w", err)
		}
	}
	store := &CredentialStore{db: db, repo: repo}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// NewCredentialStoreFromPersistence accepts a *bun.DB or anything exposing
// DB() *bun.DB, such as a go-persistence-bun client.
func NewCredentialStoreFromPersistence(client any, opts ...Option) (*CredentialStore, error) {
	db, err := resolveBunDB(client)
	if err != nil {
		return nil, err
	}
	return NewCredentialStore(db, opts...)
}

func (s *CredentialStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.repo == nil {
		return "", false, fmt.Errorf("sqlstore: credential store is not configured")
	}
	storeKey, err := s.key(key)
	if err != nil {
		return "", false, err
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("store_key", "=", storeKey),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return "", false, err
	}
	if len(records) == 0 {
		return "", false, nil
	}
	return records[0].Value, true, nil
}

func (s *CredentialStore) Set(ctx context.Context, key string, value any) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	storeKey, err := s.key(key)
	if err != nil {
		return err
	}
	encoded, err := core.EncodeStoreValue(value)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, findErr := findEntryTx(ctx, tx, storeKey)
		if findErr != nil {
			return findErr
		}
		if record == nil {
			_, createErr := s.repo.CreateTx(ctx, tx, &credentialEntryRecord{
				ID:        uuid.NewString(),
				StoreKey:  storeKey,
				Value:     encoded,
				CreatedAt: now,
				UpdatedAt: now,
			})
			return createErr
		}
		_, updateErr := tx.NewUpdate().
			Model((*credentialEntryRecord)(nil)).
			Set("value = ?", encoded).
			Set("updated_at = ?", now).
			Where("id = ?", record.ID).
			Exec(ctx)
		return updateErr
	})
}

// Pop reads and deletes key inside one transaction.
func (s *CredentialStore) Pop(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, fmt.Errorf("sqlstore: credential store is not configured")
	}
	storeKey, err := s.key(key)
	if err != nil {
		return "", false, err
	}

	var (
		value string
		found bool
	)
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, findErr := findEntryTx(ctx, tx, storeKey)
		if findErr != nil || record == nil {
			return findErr
		}
		res, deleteErr := tx.NewDelete().
			Model((*credentialEntryRecord)(nil)).
			Where("id = ?", record.ID).
			Exec(ctx)
		if deleteErr != nil {
			return deleteErr
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return nil
		}
		value, found = record.Value, true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

func (s *CredentialStore) Remove(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	storeKey, err := s.key(key)
	if err != nil {
		return err
	}
	_, err = s.db.NewDelete().
		Model((*credentialEntryRecord)(nil)).
		Where("store_key = ?", storeKey).
		Exec(ctx)
	return err
}

func (s *CredentialStore) key(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("sqlstore: key is required")
	}
	if s.prefix == "" {
		return key, nil
	}
	return s.prefix + ":" + key, nil
}

func findEntryTx(ctx context.Context, tx bun.Tx, storeKey string) (*credentialEntryRecord, error) {
	record := &credentialEntryRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.store_key = ?", storeKey).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
