package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the handle to the local document store. It is created once by Open
// and shared by every repository; there is no package-level instance.
type Store struct {
	mu      sync.RWMutex // guards db; held shared for the duration of a transaction
	db      *sql.DB
	path    string
	version int
	locks   map[Collection]*sync.RWMutex
	clock   *clock
	logger  *slog.Logger
}

// Open opens (or creates) the store at path and brings its layout to
// targetVersion. Opening the same file at the same version is idempotent.
// A higher version recreates every collection empty; a lower version than the
// one on disk is refused.
func Open(ctx context.Context, path string, targetVersion int) (*Store, error) {
	return OpenWithLogger(ctx, path, targetVersion, slog.Default())
}

// OpenWithLogger is Open with an explicit logger.
func OpenWithLogger(ctx context.Context, path string, targetVersion int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if targetVersion < 1 {
		return nil, fmt.Errorf("%w: invalid target version %d", ErrSchemaUnavailable, targetVersion)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create database directory: %w", ErrSchemaUnavailable, err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", ErrSchemaUnavailable, err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", ErrSchemaUnavailable, err)
	}

	s := &Store{
		db:     db,
		path:   path,
		locks:  make(map[Collection]*sync.RWMutex, len(layout)),
		clock:  newClock(time.Now),
		logger: logger,
	}
	for _, c := range layout {
		s.locks[c.name] = &sync.RWMutex{}
	}

	from, err := s.migrate(ctx, targetVersion)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)
	}
	s.version = targetVersion

	latest, err := s.latestTimestamp(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)
	}
	s.clock.Seed(latest)

	logger.Info("Store opened", "path", path, "version", targetVersion, "previous_version", from)
	return s, nil
}

// Version returns the schema version the store was opened at.
func (s *Store) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrStoreNotInitialized
	}
	return s.db.PingContext(ctx)
}

// Close waits for in-flight transactions and closes the database. Later
// transactions fail with ErrStoreNotInitialized.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// clock hands out strictly increasing timestamps so that records written in
// the same nanosecond still have a total order.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newClock(now func() time.Time) *clock {
	return &clock{now: now}
}

// Seed makes later timestamps come after t, even if the wall clock is behind it.
func (c *clock) Seed(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.last) {
		c.last = t
	}
}

func (c *clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

// latestTimestamp returns the newest timestamp stored in any collection.
func (s *Store) latestTimestamp(ctx context.Context) (time.Time, error) {
	var latest sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(ts) FROM (
		SELECT MAX(timestamp) AS ts FROM messages
		UNION ALL SELECT MAX(updated_at) FROM sessions
		UNION ALL SELECT MAX(saved_at) FROM profiles
		UNION ALL SELECT MAX(saved_at) FROM customQuestions
	)`).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("read latest timestamp: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return fromUnixNano(latest.Int64), nil
}

func toUnixNano(t time.Time) int64 { return t.UnixNano() }

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }
