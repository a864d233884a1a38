package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/averline/splitkit/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS assignments (
		subject_id TEXT NOT NULL,
		experiment_id TEXT NOT NULL,
		variant TEXT NOT NULL,
		assigned_at INTEGER NOT NULL,
		tracked INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (subject_id, experiment_id)
	);
	CREATE INDEX IF NOT EXISTS idx_assignments_updated ON assignments(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetAssignment retrieves an assignment, or nil when none exists.
func (s *SQLiteStore) GetAssignment(ctx context.Context, subjectID, experimentID string) (*domain.ExperimentAssignment, error) {
	query := `
		SELECT subject_id, experiment_id, variant, assigned_at, tracked
		FROM assignments WHERE subject_id = ? AND experiment_id = ?`

	row := s.db.QueryRowContext(ctx, query, subjectID, experimentID)

	var a domain.ExperimentAssignment
	var assignedAt int64
	var tracked int

	err := row.Scan(&a.SubjectID, &a.ExperimentID, &a.Variant, &assignedAt, &tracked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan assignment row: %w", err)
	}

	a.AssignedAt = time.Unix(assignedAt, 0)
	a.Tracked = tracked != 0

	return &a, nil
}

// PutAssignment creates or replaces an assignment record.
func (s *SQLiteStore) PutAssignment(ctx context.Context, a *domain.ExperimentAssignment) error {
	query := `
	INSERT INTO assignments (subject_id, experiment_id, variant, assigned_at, tracked, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(subject_id, experiment_id) DO UPDATE SET
		variant = excluded.variant,
		assigned_at = excluded.assigned_at,
		tracked = excluded.tracked,
		updated_at = excluded.updated_at`

	tracked := 0
	if a.Tracked {
		tracked = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		a.SubjectID, a.ExperimentID, a.Variant,
		a.AssignedAt.Unix(), tracked, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}
	return nil
}

// MarkTracked flags an assignment as having had its assignment event sent.
func (s *SQLiteStore) MarkTracked(ctx context.Context, subjectID, experimentID string) error {
	query := `UPDATE assignments SET tracked = 1, updated_at = ? WHERE subject_id = ? AND experiment_id = ?`
	result, err := s.db.ExecContext(ctx, query, time.Now().Unix(), subjectID, experimentID)
	if err != nil {
		return fmt.Errorf("mark assignment tracked: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("MarkTracked affected 0 rows", "subject_id", subjectID, "experiment_id", experimentID)
	}

	return nil
}

// ListAssignments retrieves all assignments for a subject.
func (s *SQLiteStore) ListAssignments(ctx context.Context, subjectID string) ([]*domain.ExperimentAssignment, error) {
	query := `
		SELECT subject_id, experiment_id, variant, assigned_at, tracked
		FROM assignments WHERE subject_id = ? ORDER BY assigned_at`

	rows, err := s.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close assignment rows", "error", closeErr)
		}
	}()

	var out []*domain.ExperimentAssignment
	for rows.Next() {
		var a domain.ExperimentAssignment
		var assignedAt int64
		var tracked int

		if err := rows.Scan(&a.SubjectID, &a.ExperimentID, &a.Variant, &assignedAt, &tracked); err != nil {
			return nil, fmt.Errorf("scan assignment row: %w", err)
		}

		a.AssignedAt = time.Unix(assignedAt, 0)
		a.Tracked = tracked != 0
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignment rows: %w", err)
	}

	return out, nil
}

// CleanupExpiredAssignments removes assignments not touched within ttl.
func (s *SQLiteStore) CleanupExpiredAssignments(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM assignments WHERE updated_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete expired assignments: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return deleted, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
