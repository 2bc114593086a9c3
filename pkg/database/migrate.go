package database

import (
	"database/sql"
	"fmt"
	"os"
)

// Migrate applies docs/schema.sql against the open database. The schema
// uses IF NOT EXISTS throughout, so applying it repeatedly is safe.
func Migrate(db *sql.DB) error {
	b, err := os.ReadFile("docs/schema.sql")
	if err != nil {
		return fmt.Errorf("read docs/schema.sql: %w", err)
	}

	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
