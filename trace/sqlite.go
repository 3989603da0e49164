package trace

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

func (s *SQLiteStore) RecordActivation(ctx context.Context, rec *Record) error {
	s.logger.Debug("sql", "op", "insert", "table", "activations", "task", rec.Task, "seq", rec.Seq)

	exited := 0
	if rec.Exited {
		exited = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activations (id, boot_id, seq, task, cost, budget, status, violations, cooldown, exited, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.BootID, rec.Seq, rec.Task, rec.Cost, rec.Budget, rec.Status,
		rec.Violations, rec.Cooldown, exited, rec.At.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) RecentActivations(ctx context.Context, limit int) ([]*Record, error) {
	s.logger.Debug("sql", "op", "select", "table", "activations", "limit", limit)

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, boot_id, seq, task, cost, budget, status, violations, cooldown, exited, at
		 FROM activations ORDER BY boot_id DESC, seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var rec Record
		var exited int
		var at string
		if err := rows.Scan(&rec.ID, &rec.BootID, &rec.Seq, &rec.Task, &rec.Cost, &rec.Budget,
			&rec.Status, &rec.Violations, &rec.Cooldown, &exited, &at); err != nil {
			return nil, err
		}
		rec.Exited = exited != 0
		rec.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) TaskSummaries(ctx context.Context, bootID string) ([]*TaskSummary, error) {
	s.logger.Debug("sql", "op", "summarize", "table", "activations", "boot", bootID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT task,
		        COUNT(*),
		        SUM(CASE WHEN status = 'failure' THEN 1 ELSE 0 END),
		        SUM(cost),
		        (SELECT status FROM activations a2
		         WHERE a2.task = a.task AND a2.boot_id = a.boot_id
		         ORDER BY seq DESC LIMIT 1)
		 FROM activations a
		 WHERE boot_id = ?
		 GROUP BY task
		 ORDER BY task`, bootID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*TaskSummary
	for rows.Next() {
		var ts TaskSummary
		if err := rows.Scan(&ts.Task, &ts.Activations, &ts.Overruns, &ts.TotalCost, &ts.LastStatus); err != nil {
			return nil, err
		}
		out = append(out, &ts)
	}
	return out, rows.Err()
}
