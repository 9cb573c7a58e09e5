package store

import (
	"context"
	"fmt"
)

// Repositories bundles the typed repositories that share one Store.
type Repositories struct {
	store     *Store
	Sessions  *SessionRepository
	Messages  *MessageRepository
	Profiles  *ProfileRepository
	Questions *QuestionSetRepository
}

// NewRepositories creates every repository on s.
func NewRepositories(s *Store) *Repositories {
	return &Repositories{
		store:     s,
		Sessions:  NewSessionRepository(s),
		Messages:  NewMessageRepository(s),
		Profiles:  NewProfileRepository(s),
		Questions: NewQuestionSetRepository(s),
	}
}

// ClearAllData empties all four collections in one transaction.
func (r *Repositories) ClearAllData(ctx context.Context) error {
	err := r.store.Transaction(ctx, ReadWrite, AllCollections, func(tx *Tx) error {
		for _, c := range AllCollections {
			if _, err := tx.Exec(ctx, c, `DELETE FROM "`+string(c)+`"`); err != nil {
				return fmt.Errorf("clear %s: %w", c, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear all data: %w", err)
	}
	return nil
}
