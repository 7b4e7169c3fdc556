package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-onboarding/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const preferenceCacheKeyPrefix = "go-onboarding::email_preference::v1"

// CachedPreferenceStore fronts the preference store with a read-through
// cache. Preferences sit on the hot path of every send; writes
// invalidate so a recipient opting out takes effect on the next send.
type CachedPreferenceStore struct {
	base  core.EmailPreferenceStore
	cache repositorycache.CacheService
}

func NewCachedPreferenceStore(
	base core.EmailPreferenceStore,
	cacheService repositorycache.CacheService,
) (*CachedPreferenceStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base preference store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: preference cache service is required")
	}
	return &CachedPreferenceStore{base: base, cache: cacheService}, nil
}

// PreferenceCacheKey returns the deterministic cache key for one
// recipient: go-onboarding::email_preference::v1::<user_id> with the
// user id URL-path escaped.
func PreferenceCacheKey(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("sqlstore: user id is required")
	}
	return preferenceCacheKeyPrefix + "::" + url.PathEscape(userID), nil
}

type cachedPreference struct {
	Preference core.EmailPreference
	Found      bool
}

func (s *CachedPreferenceStore) Get(ctx context.Context, userID string) (core.EmailPreference, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.EmailPreference{}, false, fmt.Errorf("sqlstore: cached preference store is not configured")
	}
	cacheKey, err := PreferenceCacheKey(userID)
	if err != nil {
		return core.EmailPreference{}, false, err
	}

	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedPreference, error) {
		preference, found, fetchErr := s.base.Get(ctx, userID)
		if fetchErr != nil {
			return cachedPreference{}, fetchErr
		}
		return cachedPreference{
			Preference: clonePreference(preference),
			Found:      found,
		}, nil
	})
	if err != nil {
		return core.EmailPreference{}, false, err
	}
	return clonePreference(entry.Preference), entry.Found, nil
}

func (s *CachedPreferenceStore) Upsert(ctx context.Context, preference core.EmailPreference) (core.EmailPreference, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.EmailPreference{}, fmt.Errorf("sqlstore: cached preference store is not configured")
	}
	stored, err := s.base.Upsert(ctx, preference)
	if err != nil {
		return core.EmailPreference{}, err
	}

	cacheKey, err := PreferenceCacheKey(stored.UserID)
	if err != nil {
		return core.EmailPreference{}, err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.EmailPreference{}, err
	}
	return stored, nil
}

func clonePreference(preference core.EmailPreference) core.EmailPreference {
	cloned := preference
	cloned.PerCategoryFlags = copyBoolMap(preference.PerCategoryFlags)
	return cloned
}

var _ core.EmailPreferenceStore = (*CachedPreferenceStore)(nil)
