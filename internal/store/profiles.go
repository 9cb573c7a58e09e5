package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ashureev/jobpt/internal/domain"
)

// ProfileRepository implements ProfileStore. A save always replaces the whole record.
type ProfileRepository struct {
	store *Store
}

// NewProfileRepository creates a profile repository on s.
func NewProfileRepository(s *Store) *ProfileRepository {
	return &ProfileRepository{store: s}
}

// Save upserts the profile of userID.
func (r *ProfileRepository) Save(ctx context.Context, userID string, data domain.ProfileData) (domain.Profile, error) {
	if userID == "" {
		return domain.Profile{}, errors.New("save profile: empty user id")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("marshal profile: %w", err)
	}

	p := domain.Profile{UserID: userID, Data: data}
	err = r.store.Transaction(ctx, ReadWrite, []Collection{Profiles}, func(tx *Tx) error {
		p.SavedAt = r.store.clock.Next()
		_, err := tx.Exec(ctx, Profiles,
			`INSERT INTO profiles (user_id, profile_data, saved_at) VALUES (?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
				profile_data = excluded.profile_data,
				saved_at = excluded.saved_at`,
			userID, string(raw), toUnixNano(p.SavedAt))
		return err
	})
	if err != nil {
		return domain.Profile{}, fmt.Errorf("save profile for %s: %w", userID, err)
	}
	return p, nil
}

// Get returns the profile of userID, or nil when none was saved.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	var out *domain.Profile
	err := r.store.Transaction(ctx, ReadOnly, []Collection{Profiles}, func(tx *Tx) error {
		out = nil
		row, err := tx.QueryRow(ctx, Profiles,
			`SELECT profile_data, saved_at FROM profiles WHERE user_id = ?`, userID)
		if err != nil {
			return err
		}

		var raw string
		var savedAt int64
		err = row.Scan(&raw, &savedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("scan profile row: %w", err)
		}

		p := domain.Profile{UserID: userID, SavedAt: fromUnixNano(savedAt)}
		if err := json.Unmarshal([]byte(raw), &p.Data); err != nil {
			return fmt.Errorf("decode profile: %w", err)
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get profile for %s: %w", userID, err)
	}
	return out, nil
}

// Delete removes the profile of userID. Deleting an absent profile is not an error.
func (r *ProfileRepository) Delete(ctx context.Context, userID string) error {
	err := r.store.Transaction(ctx, ReadWrite, []Collection{Profiles}, func(tx *Tx) error {
		_, err := tx.Exec(ctx, Profiles, `DELETE FROM profiles WHERE user_id = ?`, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete profile for %s: %w", userID, err)
	}
	return nil
}
