package migrations

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the vault SQL migration tree. Postgres files live at the
// root and sqlite alternatives under data/sql/migrations/sqlite.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded migration tree.
func GetMigrationsFS() fs.FS {
	return migrationsFS
}
