package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type credentialEntryRecord struct {
	bun.BaseModel `bun:"table:vault_credential_entries,alias:vce"`

	ID        string    `bun:"id,pk"`
	StoreKey  string    `bun:"store_key,notnull"`
	Value     string    `bun:"value,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
