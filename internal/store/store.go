// Package store provides the local versioned document store and the typed
// repositories built on it.
package store

import (
	"context"

	"github.com/ashureev/jobpt/internal/domain"
)

// SessionStore persists conversation threads.
type SessionStore interface {
	// Upsert creates the session if absent, else refreshes UpdatedAt keeping CreatedAt.
	Upsert(ctx context.Context, id string) (domain.Session, error)

	// Get returns the session or nil when it does not exist.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// ListAll returns every session, most recently updated first.
	ListAll(ctx context.Context) ([]domain.Session, error)

	// Delete removes the session and all of its messages atomically.
	Delete(ctx context.Context, id string) error

	// ClearAll removes every session and every message atomically.
	ClearAll(ctx context.Context) error
}

// MessageStore persists the append-only message log.
type MessageStore interface {
	// Append stores a new message with a fresh id and timestamp.
	Append(ctx context.Context, sessionID string, role domain.Role, content string) (domain.Message, error)

	// ListBySession returns a session's messages in creation order.
	ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error)

	// ListForExternalRequest returns user and assistant turns in creation order.
	ListForExternalRequest(ctx context.Context, sessionID string) ([]domain.ChatTurn, error)

	// Count returns the number of messages stored for a session.
	Count(ctx context.Context, sessionID string) (int, error)

	// DeleteBySession removes all messages of a session as one batch.
	DeleteBySession(ctx context.Context, sessionID string) error

	// ClearAll removes every message.
	ClearAll(ctx context.Context) error
}

// ProfileStore persists the singleton profile of each user.
type ProfileStore interface {
	Save(ctx context.Context, userID string, data domain.ProfileData) (domain.Profile, error)
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Delete(ctx context.Context, userID string) error
}

// QuestionSetStore persists the singleton custom question set of each user.
type QuestionSetStore interface {
	Save(ctx context.Context, userID string, questions []string, source domain.QuestionSource) (domain.CustomQuestionSet, error)
	Get(ctx context.Context, userID string) (*domain.CustomQuestionSet, error)
	Delete(ctx context.Context, userID string) error
}

// DataPurger wipes every collection at once.
type DataPurger interface {
	ClearAllData(ctx context.Context) error
}

// Ensure the SQLite-backed repositories implement the interfaces.
var (
	_ SessionStore     = (*SessionRepository)(nil)
	_ MessageStore     = (*MessageRepository)(nil)
	_ ProfileStore     = (*ProfileRepository)(nil)
	_ QuestionSetStore = (*QuestionSetRepository)(nil)
	_ DataPurger       = (*Repositories)(nil)
)
