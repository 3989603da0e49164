package trace

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the trace tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS activations (
		id         TEXT PRIMARY KEY,
		boot_id    TEXT NOT NULL,
		seq        INTEGER NOT NULL,
		task       TEXT NOT NULL,
		cost       INTEGER NOT NULL,
		budget     INTEGER NOT NULL,
		status     TEXT NOT NULL,
		violations INTEGER NOT NULL DEFAULT 0,
		cooldown   INTEGER NOT NULL DEFAULT 0,
		exited     INTEGER NOT NULL DEFAULT 0,
		at         TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_activations_boot_seq ON activations(boot_id, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_activations_task ON activations(task)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
