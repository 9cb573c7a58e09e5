package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ashureev/jobpt/internal/shared"
)

// Mode selects whether a transaction may write.
type Mode int

const (
	// ReadOnly transactions never mutate state and run concurrently with each other.
	ReadOnly Mode = iota
	// ReadWrite transactions serialize with other transactions touching the same collections.
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "readwrite"
	}
	return "readonly"
}

const (
	maxConflictRetries = 3
	conflictBaseDelay  = 50 * time.Millisecond
	conflictMaxDelay   = 400 * time.Millisecond
)

// Tx is a transaction scoped to a fixed set of collections. Every statement
// names the collection it touches; a statement outside the scope, or a write in
// a read-only transaction, poisons the transaction so it can only abort.
type Tx struct {
	tx    *sql.Tx
	mode  Mode
	scope []Collection
	err   error
}

func (t *Tx) check(c Collection, write bool) error {
	if t.err != nil {
		return t.err
	}
	if !slices.Contains(t.scope, c) {
		t.err = fmt.Errorf("%w: %s", errOutOfScope, c)
		return t.err
	}
	if write && t.mode != ReadWrite {
		t.err = fmt.Errorf("%w: %s", errReadOnly, c)
		return t.err
	}
	return nil
}

// Exec runs a write statement against collection c.
func (t *Tx) Exec(ctx context.Context, c Collection, query string, args ...any) (sql.Result, error) {
	if err := t.check(c, true); err != nil {
		return nil, err
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		t.err = err
		return nil, err
	}
	return res, nil
}

// Query runs a read statement against collection c.
func (t *Tx) Query(ctx context.Context, c Collection, query string, args ...any) (*sql.Rows, error) {
	if err := t.check(c, false); err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		t.err = err
		return nil, err
	}
	return rows, nil
}

// QueryRow runs a single-row read statement against collection c.
func (t *Tx) QueryRow(ctx context.Context, c Collection, query string, args ...any) (*sql.Row, error) {
	if err := t.check(c, false); err != nil {
		return nil, err
	}
	return t.tx.QueryRowContext(ctx, query, args...), nil
}

// Transaction runs fn atomically against the named collections. Either every
// statement issued through the Tx commits, or none does and the returned error
// wraps ErrTransactionAborted. fn may run more than once when SQLite reports a
// lock conflict, so it must not have side effects outside the Tx other than
// capturing results.
func (s *Store) Transaction(ctx context.Context, mode Mode, collections []Collection, fn func(*Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrStoreNotInitialized
	}

	scope, err := normalizeScope(collections)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionAborted, err)
	}

	unlock := s.lockCollections(mode, scope)
	defer unlock()

	for attempt := 0; ; attempt++ {
		err = s.runOnce(ctx, mode, scope, fn)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || attempt >= maxConflictRetries-1 {
			break
		}
		delay := shared.ExponentialBackoff(attempt, conflictBaseDelay, conflictMaxDelay)
		s.logger.Debug("Transaction hit SQLite lock conflict, retrying",
			"mode", mode.String(), "collections", scope, "attempt", attempt+1, "delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrTransactionAborted, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%w: %w", ErrTransactionAborted, err)
}

func (s *Store) runOnce(ctx context.Context, mode Mode, scope []Collection, fn func(*Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	t := &Tx{tx: sqlTx, mode: mode, scope: scope}

	rollback := func() {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("failed to roll back transaction", "error", rbErr)
		}
	}

	if err := fn(t); err != nil {
		rollback()
		return err
	}
	if t.err != nil {
		rollback()
		return t.err
	}
	if mode == ReadOnly {
		rollback()
		return nil
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// lockCollections takes per-collection locks in a fixed order so that two
// transactions with overlapping scopes cannot deadlock.
func (s *Store) lockCollections(mode Mode, scope []Collection) func() {
	locked := make([]Collection, 0, len(scope))
	for _, c := range scope {
		if mode == ReadWrite {
			s.locks[c].Lock()
		} else {
			s.locks[c].RLock()
		}
		locked = append(locked, c)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			if mode == ReadWrite {
				s.locks[locked[i]].Unlock()
			} else {
				s.locks[locked[i]].RUnlock()
			}
		}
	}
}

func normalizeScope(collections []Collection) ([]Collection, error) {
	if len(collections) == 0 {
		return nil, errEmptyScope
	}
	scope := make([]Collection, 0, len(collections))
	for _, c := range collections {
		if !slices.Contains(AllCollections, c) {
			return nil, fmt.Errorf("%w: %q", errUnknownColl, c)
		}
		if !slices.Contains(scope, c) {
			scope = append(scope, c)
		}
	}
	slices.Sort(scope)
	return scope, nil
}
