package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"versecast/internal/config"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "ledger.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk location of the database file.
func (s *Store) Path() string {
	return s.path
}

// Upsert registers a poem in the ledger. New items start pending; existing
// items get refreshed header fields and body text while their status, attempt
// count, and recorded outputs are preserved, so re-scanning a source directory
// never grants extra retries or reprocesses finished work.
func (s *Store) Upsert(ctx context.Context, item *Item) (*Item, error) {
	if item == nil || strings.TrimSpace(item.ID) == "" {
		return nil, errors.New("upsert: item id required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO ledger_items (
            id, source_path, title, author, body, language, status, attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            source_path = excluded.source_path,
            title = excluded.title,
            author = excluded.author,
            body = excluded.body,
            language = excluded.language,
            updated_at = excluded.updated_at`,
		item.ID,
		nullableString(item.SourcePath),
		nullableString(item.Title),
		nullableString(item.Author),
		nullableString(item.Body),
		nullableString(item.Language),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert item %s: %w", item.ID, err)
	}

	return s.GetByID(ctx, item.ID)
}

// GetByID fetches a single item by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM ledger_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return item, nil
}

// List returns items filtered by the provided statuses, or every item when no
// statuses are given, ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM ledger_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListEligible returns items a batch run may pick up: pending items plus
// failed items that still have retry budget left.
func (s *Store) ListEligible(ctx context.Context, maxAttempts int) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM ledger_items
         WHERE status = ? OR (status = ? AND attempts < ?)
         ORDER BY created_at ASC, id ASC`,
		StatusPending,
		StatusFailed,
		maxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("list eligible items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Claim atomically transitions an eligible item into the synthesizing state
// and charges one attempt. The attempt is recorded before any external work
// starts, so a crash mid-stage can never grant a free retry. Returns false
// when the item was not eligible (already claimed, done, or out of budget).
func (s *Store) Claim(ctx context.Context, id string, maxAttempts int) (*Item, bool, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE ledger_items
         SET status = ?, attempts = attempts + 1, error_message = NULL, updated_at = ?
         WHERE id = ? AND (status = ? OR (status = ? AND attempts < ?))`,
		StatusSynthesizing,
		timestamp,
		id,
		StatusPending,
		StatusFailed,
		maxAttempts,
	)
	if err != nil {
		return nil, false, fmt.Errorf("claim item %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("claim item %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return nil, false, nil
	}

	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

// MarkStatus advances an item to the given processing status.
func (s *Store) MarkStatus(ctx context.Context, id string, status Status) error {
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("mark status: unknown status %q", status)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	return s.execExpectingRow(
		ctx,
		"mark status",
		id,
		`UPDATE ledger_items SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		timestamp,
		id,
	)
}

// MarkFailed records a failure. Retryable failures keep the attempt count as
// charged at claim time; non-retryable ones are raised to the attempt ceiling
// so later runs skip the item until it is explicitly retried.
func (s *Store) MarkFailed(ctx context.Context, id, message string, retryable bool, maxAttempts int) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if retryable {
		return s.execExpectingRow(
			ctx,
			"mark failed",
			id,
			`UPDATE ledger_items SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
			StatusFailed,
			nullableString(message),
			timestamp,
			id,
		)
	}
	return s.execExpectingRow(
		ctx,
		"mark failed",
		id,
		`UPDATE ledger_items SET status = ?, error_message = ?, attempts = MAX(attempts, ?), updated_at = ? WHERE id = ?`,
		StatusFailed,
		nullableString(message),
		maxAttempts,
		timestamp,
		id,
	)
}

// RecordSynthesis stores the narration artifacts produced by the synthesis stage.
func (s *Store) RecordSynthesis(ctx context.Context, id, audioPath, alignmentPath string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	return s.execExpectingRow(
		ctx,
		"record synthesis",
		id,
		`UPDATE ledger_items SET audio_path = ?, alignment_path = ?, updated_at = ? WHERE id = ?`,
		nullableString(audioPath),
		nullableString(alignmentPath),
		timestamp,
		id,
	)
}

// RecordVideo stores the rendered video path.
func (s *Store) RecordVideo(ctx context.Context, id, videoPath string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	return s.execExpectingRow(
		ctx,
		"record video",
		id,
		`UPDATE ledger_items SET video_path = ?, updated_at = ? WHERE id = ?`,
		nullableString(videoPath),
		timestamp,
		id,
	)
}

// MarkDone finalizes an item with its published output reference. Repeating
// the call leaves the row untouched: the first completion timestamp wins and
// updated_at only moves on the transition into done.
func (s *Store) MarkDone(ctx context.Context, id, outputRef string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	return s.execExpectingRow(
		ctx,
		"mark done",
		id,
		`UPDATE ledger_items
		 SET status = ?, output_ref = ?, error_message = NULL,
		     processed_at = COALESCE(processed_at, ?),
		     updated_at = CASE WHEN status = ? THEN updated_at ELSE ? END
		 WHERE id = ?`,
		StatusDone,
		nullableString(outputRef),
		timestamp,
		StatusDone,
		timestamp,
		id,
	)
}

// RetryFailed resets failed items back to pending with a fresh attempt budget.
// With no ids it resets every failed item; returns the number reset.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	query := `UPDATE ledger_items SET status = ?, attempts = 0, error_message = NULL, updated_at = ? WHERE status = ?`
	args := []any{StatusPending, timestamp, StatusFailed}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes an item from the ledger.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ledger_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove item %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Clear deletes every item and returns the number removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ledger_items`)
	if err != nil {
		return 0, fmt.Errorf("clear ledger: %w", err)
	}
	return res.RowsAffected()
}

// ClearDone deletes finished items and returns the number removed.
func (s *Store) ClearDone(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ledger_items WHERE status = ?`, StatusDone)
	if err != nil {
		return 0, fmt.Errorf("clear done items: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) execExpectingRow(ctx context.Context, operation, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", operation, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", operation, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: item not found", operation, id)
	}
	return nil
}
