package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Collection names a persisted collection (one SQLite table).
type Collection string

const (
	Sessions        Collection = "sessions"
	Messages        Collection = "messages"
	Profiles        Collection = "profiles"
	CustomQuestions Collection = "customQuestions"
)

// AllCollections lists every collection in lock order.
var AllCollections = []Collection{CustomQuestions, Messages, Profiles, Sessions}

type collectionLayout struct {
	name    Collection
	table   string
	indexes []string
}

var layout = []collectionLayout{
	{
		name: Sessions,
		table: `CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at)`,
		},
	},
	{
		name: Messages,
		table: `CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)`,
		indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp)`,
		},
	},
	{
		name: Profiles,
		table: `CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			profile_data TEXT NOT NULL,
			saved_at INTEGER NOT NULL
		)`,
	},
	{
		name: CustomQuestions,
		table: `CREATE TABLE IF NOT EXISTS customQuestions (
			user_id TEXT PRIMARY KEY,
			questions TEXT NOT NULL,
			source TEXT NOT NULL,
			saved_at INTEGER NOT NULL
		)`,
	},
}

// migrate brings the on-disk layout to target inside a single transaction and
// returns the version found on disk. Any version increase drops and recreates
// every collection empty; existing data is not carried across.
func (s *Store) migrate(ctx context.Context, target int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Warn("failed to roll back schema transaction", "error", rbErr)
		}
	}()

	var current int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&current); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	switch {
	case current > target:
		return current, fmt.Errorf("schema version %d on disk is newer than requested %d", current, target)
	case current > 0 && current < target:
		s.logger.Warn("Schema upgrade recreates all collections; existing data is discarded",
			slog.Int("from", current), slog.Int("to", target))
		if err := dropAll(ctx, tx); err != nil {
			return current, err
		}
	}

	for _, c := range layout {
		if _, err := tx.ExecContext(ctx, c.table); err != nil {
			return current, fmt.Errorf("create collection %s: %w", c.name, err)
		}
		for _, idx := range c.indexes {
			if _, err := tx.ExecContext(ctx, idx); err != nil {
				return current, fmt.Errorf("create index on %s: %w", c.name, err)
			}
		}
	}

	if current != target {
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
			return current, fmt.Errorf("set schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return current, fmt.Errorf("commit schema: %w", err)
	}
	return current, nil
}

func dropAll(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan collection name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("close collection rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate collections: %w", err)
	}

	for _, name := range names {
		// Dropping a table drops its indexes with it.
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS "`+name+`"`); err != nil {
			return fmt.Errorf("drop collection %s: %w", name, err)
		}
	}
	return nil
}

// Collections returns the names of the collections present on disk.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	return s.listMaster(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
}

// Indexes returns the secondary indexes declared on a collection.
func (s *Store) Indexes(ctx context.Context, c Collection) ([]string, error) {
	return s.listMaster(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type = 'index' AND tbl_name = ? AND name NOT LIKE 'sqlite_autoindex%'
		 ORDER BY name`, string(c))
}

func (s *Store) listMaster(ctx context.Context, query string, args ...any) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrStoreNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schema: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close schema rows", "error", closeErr)
		}
	}()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema rows: %w", err)
	}
	return names, nil
}
