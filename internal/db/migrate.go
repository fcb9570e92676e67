package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	// AUTOINCREMENT keeps ids monotonic so a deleted node's id is never
	// reassigned to a later node.
	`CREATE TABLE IF NOT EXISTS tree_nodes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		kind       TEXT NOT NULL
		           CHECK(kind IN ('folder','testcase')),
		parent_id  INTEGER REFERENCES tree_nodes(id) ON DELETE CASCADE,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tree_nodes_parent ON tree_nodes(parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tree_nodes_parent_order ON tree_nodes(parent_id, sort_order)`,
	`CREATE INDEX IF NOT EXISTS idx_tree_nodes_name ON tree_nodes(name)`,
}
