package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ashureev/jobpt/internal/domain"
)

// SessionRepository implements SessionStore on the sessions collection.
type SessionRepository struct {
	store *Store
}

// NewSessionRepository creates a session repository on s.
func NewSessionRepository(s *Store) *SessionRepository {
	return &SessionRepository{store: s}
}

// Upsert creates the session if absent, else refreshes UpdatedAt keeping CreatedAt and Title.
func (r *SessionRepository) Upsert(ctx context.Context, id string) (domain.Session, error) {
	if id == "" {
		return domain.Session{}, errors.New("upsert session: empty id")
	}

	var out domain.Session
	err := r.store.Transaction(ctx, ReadWrite, []Collection{Sessions}, func(tx *Tx) error {
		now := r.store.clock.Next()
		existing, err := getSession(ctx, tx, id)
		if err != nil {
			return err
		}

		if existing == nil {
			out = domain.Session{
				ID:        id,
				Title:     domain.DefaultSessionTitle(now),
				CreatedAt: now,
				UpdatedAt: now,
			}
			_, err = tx.Exec(ctx, Sessions,
				`INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
				out.ID, out.Title, toUnixNano(out.CreatedAt), toUnixNano(out.UpdatedAt))
			if err != nil {
				return fmt.Errorf("insert session: %w", err)
			}
			return nil
		}

		out = *existing
		out.UpdatedAt = now
		if _, err := tx.Exec(ctx, Sessions,
			`UPDATE sessions SET updated_at = ? WHERE id = ?`, toUnixNano(now), id); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("upsert session %s: %w", id, err)
	}
	return out, nil
}

// Get returns the session or nil when absent.
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	var out *domain.Session
	err := r.store.Transaction(ctx, ReadOnly, []Collection{Sessions}, func(tx *Tx) error {
		var err error
		out, err = getSession(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return out, nil
}

func getSession(ctx context.Context, tx *Tx, id string) (*domain.Session, error) {
	row, err := tx.QueryRow(ctx, Sessions,
		`SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}

	var s domain.Session
	var createdAt, updatedAt int64
	err = row.Scan(&s.ID, &s.Title, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	s.CreatedAt = fromUnixNano(createdAt)
	s.UpdatedAt = fromUnixNano(updatedAt)
	return &s, nil
}

// ListAll returns every session ordered by UpdatedAt, newest first.
func (r *SessionRepository) ListAll(ctx context.Context) ([]domain.Session, error) {
	sessions := make([]domain.Session, 0)
	err := r.store.Transaction(ctx, ReadOnly, []Collection{Sessions}, func(tx *Tx) error {
		sessions = sessions[:0]
		rows, err := tx.Query(ctx, Sessions,
			`SELECT id, title, created_at, updated_at FROM sessions ORDER BY updated_at DESC, id`)
		if err != nil {
			return fmt.Errorf("query sessions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var s domain.Session
			var createdAt, updatedAt int64
			if err := rows.Scan(&s.ID, &s.Title, &createdAt, &updatedAt); err != nil {
				return fmt.Errorf("scan session row: %w", err)
			}
			s.CreatedAt = fromUnixNano(createdAt)
			s.UpdatedAt = fromUnixNano(updatedAt)
			sessions = append(sessions, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes a session together with all of its messages in one transaction.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	err := r.store.Transaction(ctx, ReadWrite, []Collection{Sessions, Messages}, func(tx *Tx) error {
		if _, err := tx.Exec(ctx, Messages, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("delete session messages: %w", err)
		}
		if _, err := tx.Exec(ctx, Sessions, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete session row: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// ClearAll removes every session and message in one transaction.
func (r *SessionRepository) ClearAll(ctx context.Context) error {
	err := r.store.Transaction(ctx, ReadWrite, []Collection{Sessions, Messages}, func(tx *Tx) error {
		if _, err := tx.Exec(ctx, Messages, `DELETE FROM messages`); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, Sessions, `DELETE FROM sessions`)
		return err
	})
	if err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}
