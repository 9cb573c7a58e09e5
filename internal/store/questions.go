package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ashureev/jobpt/internal/domain"
)

// QuestionSetRepository implements QuestionSetStore.
type QuestionSetRepository struct {
	store *Store
}

// NewQuestionSetRepository creates a question set repository on s.
func NewQuestionSetRepository(s *Store) *QuestionSetRepository {
	return &QuestionSetRepository{store: s}
}

// Save replaces the question set of userID.
func (r *QuestionSetRepository) Save(ctx context.Context, userID string, questions []string, source domain.QuestionSource) (domain.CustomQuestionSet, error) {
	if userID == "" {
		return domain.CustomQuestionSet{}, errors.New("save questions: empty user id")
	}
	if len(questions) > domain.MaxCustomQuestions {
		return domain.CustomQuestionSet{}, fmt.Errorf("save questions: %w: %d > %d",
			errTooManyEntries, len(questions), domain.MaxCustomQuestions)
	}

	qs := domain.CustomQuestionSet{
		UserID:    userID,
		Questions: append([]string(nil), questions...),
		Source:    source,
	}
	raw, err := json.Marshal(qs.Questions)
	if err != nil {
		return domain.CustomQuestionSet{}, fmt.Errorf("marshal questions: %w", err)
	}

	err = r.store.Transaction(ctx, ReadWrite, []Collection{CustomQuestions}, func(tx *Tx) error {
		qs.SavedAt = r.store.clock.Next()
		_, err := tx.Exec(ctx, CustomQuestions,
			`INSERT INTO customQuestions (user_id, questions, source, saved_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
				questions = excluded.questions,
				source = excluded.source,
				saved_at = excluded.saved_at`,
			userID, string(raw), string(source), toUnixNano(qs.SavedAt))
		return err
	})
	if err != nil {
		return domain.CustomQuestionSet{}, fmt.Errorf("save questions for %s: %w", userID, err)
	}
	return qs, nil
}

// Get returns the question set of userID, or nil when none was saved.
func (r *QuestionSetRepository) Get(ctx context.Context, userID string) (*domain.CustomQuestionSet, error) {
	var out *domain.CustomQuestionSet
	err := r.store.Transaction(ctx, ReadOnly, []Collection{CustomQuestions}, func(tx *Tx) error {
		out = nil
		row, err := tx.QueryRow(ctx, CustomQuestions,
			`SELECT questions, source, saved_at FROM customQuestions WHERE user_id = ?`, userID)
		if err != nil {
			return err
		}

		var raw, source string
		var savedAt int64
		err = row.Scan(&raw, &source, &savedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("scan questions row: %w", err)
		}

		qs := domain.CustomQuestionSet{
			UserID:  userID,
			Source:  domain.QuestionSource(source),
			SavedAt: fromUnixNano(savedAt),
		}
		if err := json.Unmarshal([]byte(raw), &qs.Questions); err != nil {
			return fmt.Errorf("decode questions: %w", err)
		}
		out = &qs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get questions for %s: %w", userID, err)
	}
	return out, nil
}

// Delete removes the question set of userID.
func (r *QuestionSetRepository) Delete(ctx context.Context, userID string) error {
	err := r.store.Transaction(ctx, ReadWrite, []Collection{CustomQuestions}, func(tx *Tx) error {
		_, err := tx.Exec(ctx, CustomQuestions, `DELETE FROM customQuestions WHERE user_id = ?`, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete questions for %s: %w", userID, err)
	}
	return nil
}
