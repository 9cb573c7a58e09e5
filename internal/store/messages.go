package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/jobpt/internal/domain"
	"github.com/google/uuid"
)

// MessageRepository implements MessageStore on the messages collection.
// Referential integrity with sessions is not enforced.
type MessageRepository struct {
	store *Store
}

// NewMessageRepository creates a message repository on s.
func NewMessageRepository(s *Store) *MessageRepository {
	return &MessageRepository{store: s}
}

// Append stores a message. Ids are UUIDv7 so they sort by creation time, and
// timestamps come from the store clock so they strictly increase.
func (r *MessageRepository) Append(ctx context.Context, sessionID string, role domain.Role, content string) (domain.Message, error) {
	if sessionID == "" {
		return domain.Message{}, errors.New("append message: empty session id")
	}
	if !role.Valid() {
		return domain.Message{}, fmt.Errorf("append message: invalid role %q", role)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message: generate id: %w", err)
	}

	msg := domain.Message{
		ID:        id.String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	err = r.store.Transaction(ctx, ReadWrite, []Collection{Messages}, func(tx *Tx) error {
		msg.Timestamp = r.store.clock.Next()
		_, err := tx.Exec(ctx, Messages,
			`INSERT INTO messages (id, session_id, role, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
			msg.ID, msg.SessionID, string(msg.Role), msg.Content, toUnixNano(msg.Timestamp))
		return err
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message to %s: %w", sessionID, err)
	}
	return msg, nil
}

// ListBySession returns a session's messages ordered by timestamp ascending.
// Insertion order breaks ties.
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	err := r.store.Transaction(ctx, ReadOnly, []Collection{Messages}, func(tx *Tx) error {
		messages = messages[:0]
		rows, err := tx.Query(ctx, Messages,
			`SELECT id, session_id, role, content, timestamp FROM messages
			 WHERE session_id = ? ORDER BY timestamp ASC, rowid ASC`, sessionID)
		if err != nil {
			return fmt.Errorf("query messages: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var m domain.Message
			var role string
			var ts int64
			if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &ts); err != nil {
				return fmt.Errorf("scan message row: %w", err)
			}
			if m.Role, err = domain.ParseRole(role); err != nil {
				return fmt.Errorf("message %s: %w", m.ID, err)
			}
			m.Timestamp = fromUnixNano(ts)
			messages = append(messages, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", sessionID, err)
	}
	return messages, nil
}

// ListForExternalRequest returns the user and assistant turns of a session in
// order. Persisted system messages are never forwarded.
func (r *MessageRepository) ListForExternalRequest(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	turns := make([]domain.ChatTurn, 0)
	err := r.store.Transaction(ctx, ReadOnly, []Collection{Messages}, func(tx *Tx) error {
		turns = turns[:0]
		rows, err := tx.Query(ctx, Messages,
			`SELECT role, content FROM messages
			 WHERE session_id = ? AND role IN (?, ?)
			 ORDER BY timestamp ASC, rowid ASC`,
			sessionID, string(domain.RoleUser), string(domain.RoleAssistant))
		if err != nil {
			return fmt.Errorf("query history: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var turn domain.ChatTurn
			var role string
			if err := rows.Scan(&role, &turn.Content); err != nil {
				return fmt.Errorf("scan history row: %w", err)
			}
			turn.Role = domain.Role(role)
			turns = append(turns, turn)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list history for %s: %w", sessionID, err)
	}
	return turns, nil
}

// Count returns the number of messages stored for a session.
func (r *MessageRepository) Count(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.store.Transaction(ctx, ReadOnly, []Collection{Messages}, func(tx *Tx) error {
		row, err := tx.QueryRow(ctx, Messages, `SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID)
		if err != nil {
			return err
		}
		return row.Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count messages for %s: %w", sessionID, err)
	}
	return n, nil
}

// DeleteBySession removes every message of a session in a single statement.
func (r *MessageRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	err := r.store.Transaction(ctx, ReadWrite, []Collection{Messages}, func(tx *Tx) error {
		_, err := tx.Exec(ctx, Messages, `DELETE FROM messages WHERE session_id = ?`, sessionID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete messages for %s: %w", sessionID, err)
	}
	return nil
}

// ClearAll removes every message.
func (r *MessageRepository) ClearAll(ctx context.Context) error {
	err := r.store.Transaction(ctx, ReadWrite, []Collection{Messages}, func(tx *Tx) error {
		_, err := tx.Exec(ctx, Messages, `DELETE FROM messages`)
		return err
	})
	if err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}
