package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
	"github.com/uptrace/bun"
)

// PreferenceStore reads and writes recipient email preferences. A
// missing row reports found=false; callers treat that as allowed.
type PreferenceStore struct {
	db *bun.DB
}

func NewPreferenceStore(db *bun.DB) (*PreferenceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &PreferenceStore{db: db}, nil
}

func (s *PreferenceStore) Get(ctx context.Context, userID string) (core.EmailPreference, bool, error) {
	if s == nil || s.db == nil {
		return core.EmailPreference{}, false, fmt.Errorf("sqlstore: preference store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return core.EmailPreference{}, false, fmt.Errorf("sqlstore: user id is required")
	}
	record := &emailPreferenceRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.EmailPreference{}, false, nil
		}
		return core.EmailPreference{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *PreferenceStore) Upsert(ctx context.Context, preference core.EmailPreference) (core.EmailPreference, error) {
	if s == nil || s.db == nil {
		return core.EmailPreference{}, fmt.Errorf("sqlstore: preference store is not configured")
	}
	preference.UserID = strings.TrimSpace(preference.UserID)
	if preference.UserID == "" {
		return core.EmailPreference{}, fmt.Errorf("sqlstore: user id is required")
	}
	preference.UpdatedAt = time.Now().UTC()
	if preference.PerCategoryFlags == nil {
		preference.PerCategoryFlags = map[string]bool{}
	}

	record := newEmailPreferenceRecord(preference)
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("email_enabled = EXCLUDED.email_enabled").
		Set("per_category_flags = EXCLUDED.per_category_flags").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return core.EmailPreference{}, err
	}
	return record.toDomain(), nil
}

var _ core.EmailPreferenceStore = (*PreferenceStore)(nil)
