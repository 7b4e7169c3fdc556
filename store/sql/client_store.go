package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ClientStore struct {
	db   *bun.DB
	repo repository.Repository[*clientRecord]
}

func NewClientStore(db *bun.DB) (*ClientStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*clientRecord](db, clientHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid client repository wiring: %w", err)
		}
	}
	return &ClientStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *ClientStore) Create(ctx context.Context, client core.Client) (core.Client, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.Client{}, fmt.Errorf("sqlstore: client store is not configured")
	}
	client.CompanyName = strings.TrimSpace(client.CompanyName)
	client.ContactEmail = strings.TrimSpace(client.ContactEmail)
	if client.CompanyName == "" {
		return core.Client{}, fmt.Errorf("sqlstore: company name is required")
	}
	if client.ContactEmail == "" {
		return core.Client{}, fmt.Errorf("sqlstore: contact email is required")
	}
	if strings.TrimSpace(client.ID) == "" {
		client.ID = uuid.NewString()
	}
	if strings.TrimSpace(string(client.Status)) == "" {
		client.Status = core.ClientStatusLead
	}
	now := time.Now().UTC()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	if client.UpdatedAt.IsZero() {
		client.UpdatedAt = now
	}

	record := newClientRecord(client)
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Client{}, err
	}
	return created.toDomain(), nil
}

func (s *ClientStore) Update(ctx context.Context, client core.Client) (core.Client, error) {
	if s == nil || s.repo == nil {
		return core.Client{}, fmt.Errorf("sqlstore: client store is not configured")
	}
	client.ID = strings.TrimSpace(client.ID)
	if client.ID == "" {
		return core.Client{}, fmt.Errorf("sqlstore: client id is required")
	}
	if client.UpdatedAt.IsZero() {
		client.UpdatedAt = time.Now().UTC()
	}
	record := newClientRecord(client)
	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(client.ID))
	if err != nil {
		return core.Client{}, err
	}
	return updated.toDomain(), nil
}

func (s *ClientStore) Get(ctx context.Context, id string) (core.Client, error) {
	if s == nil || s.repo == nil {
		return core.Client{}, fmt.Errorf("sqlstore: client store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return core.Client{}, err
	}
	return record.toDomain(), nil
}

func (s *ClientStore) GetByEmail(ctx context.Context, email string) (core.Client, bool, error) {
	if s == nil || s.db == nil {
		return core.Client{}, false, fmt.Errorf("sqlstore: client store is not configured")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return core.Client{}, false, fmt.Errorf("sqlstore: contact email is required")
	}
	record := &clientRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.contact_email = ?", email).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Client{}, false, nil
		}
		return core.Client{}, false, err
	}
	return record.toDomain(), true, nil
}

var _ core.ClientStore = (*ClientStore)(nil)
