package database

import (
	"database/sql"
	_ "embed"
	"fmt"
)

// SchemaVersion is the single overlay store version this build understands.
const SchemaVersion = 1

//go:embed schema.sql
var schema string

func Migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("overlay store version %d is newer than supported %d", version, SchemaVersion)
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
