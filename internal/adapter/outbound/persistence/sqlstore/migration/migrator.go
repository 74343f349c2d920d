package migration

import (
	"database/sql"
	"embed"
	"fmt"
	"path"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Run executes the embedded SQL migration files for dialect ("sqlite" or
// "postgres") in lexicographic order. Every file is idempotent.
func Run(db *sql.DB, dialect string) error {
	dir := path.Join("migrations", dialect)
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s migrations: %w", dialect, err)
	}
	for _, entry := range entries {
		data, err := migrationsFS.ReadFile(path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		if _, err := db.Exec(string(data)); err != nil {
			return fmt.Errorf("executing %s: %w", entry.Name(), err)
		}
	}
	return nil
}
