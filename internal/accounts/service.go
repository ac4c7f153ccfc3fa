package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arthaledger/arthaledger/internal/shared"
)

// Store abstracts persistence for the registry.
type Store interface {
	Insert(ctx context.Context, a Account) (Account, error)
	GetByCode(ctx context.Context, code string) (Account, error)
	Update(ctx context.Context, code string, name string, description *string, isActive bool, actor string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	ListActive(ctx context.Context) ([]Account, error)
	ListByType(ctx context.Context, t AccountType) ([]Account, error)
}

// AuditPort records registry events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the chart of accounts.
type Service struct {
	store Store
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the registry service.
func NewService(store Store, audit AuditPort) *Service {
	return &Service{store: store, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RegisterInput groups fields required to create an account.
type RegisterInput struct {
	Code          string
	Name          string
	Type          AccountType
	Category      string
	ParentCode    *string
	NormalBalance Side
	Description   *string
	IsSystem      bool
	CreatedBy     string
}

// Validate ensures registration input meets minimum criteria.
func (in RegisterInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("accounts: code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("accounts: name required")
	}
	if _, err := DefaultNormalBalance(in.Type); err != nil {
		return err
	}
	if in.NormalBalance != "" && !in.NormalBalance.Valid() {
		return ErrInvalidSide
	}
	return nil
}

// Register stores a new account. The opening balance is always zero; balances
// move only through journal postings.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Account, error) {
	if err := input.Validate(); err != nil {
		return Account{}, err
	}
	normal := input.NormalBalance
	if normal == "" {
		normal, _ = DefaultNormalBalance(input.Type)
	}
	if input.ParentCode != nil {
		if _, err := s.store.GetByCode(ctx, *input.ParentCode); err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return Account{}, ErrParentNotFound
			}
			return Account{}, err
		}
	}
	stored, err := s.store.Insert(ctx, Account{
		Code:          strings.TrimSpace(input.Code),
		Name:          strings.TrimSpace(input.Name),
		Type:          input.Type,
		Category:      input.Category,
		ParentCode:    input.ParentCode,
		NormalBalance: normal,
		Description:   input.Description,
		IsActive:      true,
		IsSystem:      input.IsSystem,
		CreatedBy:     input.CreatedBy,
	})
	if err != nil {
		return Account{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    input.CreatedBy,
			Action:   "account.register",
			Entity:   "account",
			EntityID: stored.Code,
			Meta: map[string]any{
				"type":           string(stored.Type),
				"normal_balance": string(stored.NormalBalance),
			},
			At: s.now(),
		})
	}
	return stored, nil
}

// UpdateInput carries the mutable subset of an account.
type UpdateInput struct {
	Name        *string
	Description *string
	IsActive    *bool
	UpdatedBy   string
}

// Update changes name, description, or the active flag. System accounts are
// frozen; type and normal balance can never change after registration.
func (s *Service) Update(ctx context.Context, code string, input UpdateInput) (Account, error) {
	current, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return Account{}, err
	}
	if current.IsSystem {
		return Account{}, ErrSystemAccountImmutable
	}
	name := current.Name
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
		if name == "" {
			return Account{}, errors.New("accounts: name required")
		}
	}
	description := current.Description
	if input.Description != nil {
		description = input.Description
	}
	isActive := current.IsActive
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	updated, err := s.store.Update(ctx, code, name, description, isActive, input.UpdatedBy)
	if err != nil {
		return Account{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    input.UpdatedBy,
			Action:   "account.update",
			Entity:   "account",
			EntityID: code,
			Meta:     map[string]any{"is_active": isActive},
			At:       s.now(),
		})
	}
	return updated, nil
}

// Deactivate marks an account inactive without touching its balance.
func (s *Service) Deactivate(ctx context.Context, code, actor string) (Account, error) {
	inactive := false
	return s.Update(ctx, code, UpdateInput{IsActive: &inactive, UpdatedBy: actor})
}

// Lookup fetches one account by code.
func (s *Service) Lookup(ctx context.Context, code string) (Account, error) {
	return s.store.GetByCode(ctx, code)
}

// List returns the full chart.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.store.List(ctx)
}

// ListActive returns active accounts.
func (s *Service) ListActive(ctx context.Context) ([]Account, error) {
	return s.store.ListActive(ctx)
}

// ListByType returns accounts for one type.
func (s *Service) ListByType(ctx context.Context, t AccountType) ([]Account, error) {
	if _, err := DefaultNormalBalance(t); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, t)
	}
	return s.store.ListByType(ctx, t)
}
