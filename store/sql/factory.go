package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-onboarding/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db *bun.DB

	processedEventStore   *ProcessedEventStore
	deadLetterStore       *DeadLetterStore
	onboardingRunStore    *OnboardingRunStore
	emailLogStore         *EmailLogStore
	preferenceStore       *PreferenceStore
	cachedPreferenceStore *CachedPreferenceStore
	clientStore           *ClientStore
	subscriptionStore     *SubscriptionStore
	billingApplier        *BillingApplier
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.processedEventStore != nil && f.deadLetterStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) IdempotencyLedger() core.IdempotencyLedger {
	if f == nil {
		return nil
	}
	return f.processedEventStore
}

func (f *RepositoryFactory) ProcessedEventStore() *ProcessedEventStore {
	if f == nil {
		return nil
	}
	return f.processedEventStore
}

func (f *RepositoryFactory) DeadLetterStore() core.DeadLetterStore {
	if f == nil {
		return nil
	}
	return f.deadLetterStore
}

func (f *RepositoryFactory) OnboardingRunStore() core.OnboardingRunStore {
	if f == nil {
		return nil
	}
	return f.onboardingRunStore
}

func (f *RepositoryFactory) EmailDeliveryLogStore() core.EmailDeliveryLogStore {
	if f == nil {
		return nil
	}
	return f.emailLogStore
}

func (f *RepositoryFactory) EmailPreferenceStore() core.EmailPreferenceStore {
	if f == nil {
		return nil
	}
	if f.cachedPreferenceStore != nil {
		return f.cachedPreferenceStore
	}
	return f.preferenceStore
}

// WithPreferenceCache fronts the preference store with a read-through
// cache. Stores must be built first.
func (f *RepositoryFactory) WithPreferenceCache(cacheService repositorycache.CacheService) error {
	if f == nil || f.preferenceStore == nil {
		return fmt.Errorf("sqlstore: build stores before attaching a preference cache")
	}
	cached, err := NewCachedPreferenceStore(f.preferenceStore, cacheService)
	if err != nil {
		return err
	}
	f.cachedPreferenceStore = cached
	return nil
}

func (f *RepositoryFactory) ClientStore() core.ClientStore {
	if f == nil {
		return nil
	}
	return f.clientStore
}

func (f *RepositoryFactory) SubscriptionStore() core.SubscriptionStore {
	if f == nil {
		return nil
	}
	return f.subscriptionStore
}

func (f *RepositoryFactory) BillingApplier() *BillingApplier {
	if f == nil {
		return nil
	}
	return f.billingApplier
}

func (f *RepositoryFactory) initStores() error {
	processedEventStore, err := NewProcessedEventStore(f.db)
	if err != nil {
		return err
	}
	f.processedEventStore = processedEventStore

	deadLetterStore, err := NewDeadLetterStore(f.db)
	if err != nil {
		return err
	}
	f.deadLetterStore = deadLetterStore

	onboardingRunStore, err := NewOnboardingRunStore(f.db)
	if err != nil {
		return err
	}
	f.onboardingRunStore = onboardingRunStore

	emailLogStore, err := NewEmailLogStore(f.db)
	if err != nil {
		return err
	}
	f.emailLogStore = emailLogStore

	preferenceStore, err := NewPreferenceStore(f.db)
	if err != nil {
		return err
	}
	f.preferenceStore = preferenceStore

	clientStore, err := NewClientStore(f.db)
	if err != nil {
		return err
	}
	f.clientStore = clientStore

	subscriptionStore, err := NewSubscriptionStore(f.db)
	if err != nil {
		return err
	}
	f.subscriptionStore = subscriptionStore

	billingApplier, err := NewBillingApplier(f.db)
	if err != nil {
		return err
	}
	f.billingApplier = billingApplier

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

var _ core.StoreProvider = (*RepositoryFactory)(nil)
var _ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
