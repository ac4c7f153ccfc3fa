package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	byCode map[string]Account
	nextID int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byCode: make(map[string]Account)}
}

func (s *memoryStore) Insert(ctx context.Context, a Account) (Account, error) {
	if _, ok := s.byCode[a.Code]; ok {
		return Account{}, ErrDuplicateCode
	}
	s.nextID++
	a.ID = s.nextID
	a.CurrentBalance = 0
	s.byCode[a.Code] = a
	return a, nil
}

func (s *memoryStore) GetByCode(ctx context.Context, code string) (Account, error) {
	a, ok := s.byCode[code]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (s *memoryStore) Update(ctx context.Context, code string, name string, description *string, isActive bool, actor string) (Account, error) {
	a, ok := s.byCode[code]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	a.Name = name
	a.Description = description
	a.IsActive = isActive
	a.UpdatedBy = &actor
	s.byCode[code] = a
	return a, nil
}

func (s *memoryStore) List(ctx context.Context) ([]Account, error) {
	var out []Account
	for _, a := range s.byCode {
		out = append(out, a)
	}
	return out, nil
}

func (s *memoryStore) ListActive(ctx context.Context) ([]Account, error) {
	var out []Account
	for _, a := range s.byCode {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memoryStore) ListByType(ctx context.Context, t AccountType) ([]Account, error) {
	var out []Account
	for _, a := range s.byCode {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestRegisterDefaultsNormalBalanceFromType(t *testing.T) {
	svc := NewService(newMemoryStore(), nil)

	cash, err := svc.Register(context.Background(), RegisterInput{
		Code:      "1010",
		Name:      "Cash",
		Type:      AccountTypeAsset,
		CreatedBy: "seed",
	})
	require.NoError(t, err)
	require.Equal(t, SideDebit, cash.NormalBalance)
	require.True(t, cash.IsActive)
	require.Zero(t, cash.CurrentBalance)

	income, err := svc.Register(context.Background(), RegisterInput{
		Code:      "4010",
		Name:      "Interest Income",
		Type:      AccountTypeRevenue,
		CreatedBy: "seed",
	})
	require.NoError(t, err)
	require.Equal(t, SideCredit, income.NormalBalance)
}

func TestRegisterRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryStore(), nil)

	_, err := svc.Register(context.Background(), RegisterInput{Code: "1010", Name: "Cash", Type: AccountTypeAsset, CreatedBy: "seed"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{Code: "1010", Name: "Petty Cash", Type: AccountTypeAsset, CreatedBy: "seed"})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestRegisterRejectsUnknownParent(t *testing.T) {
	svc := NewService(newMemoryStore(), nil)

	parent := "9999"
	_, err := svc.Register(context.Background(), RegisterInput{Code: "1011", Name: "Bank", Type: AccountTypeAsset, ParentCode: &parent, CreatedBy: "seed"})
	require.ErrorIs(t, err, ErrParentNotFound)
}

func TestUpdateRejectsSystemAccounts(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Code: "1010", Name: "Cash", Type: AccountTypeAsset, IsSystem: true, CreatedBy: "seed"})
	require.NoError(t, err)

	name := "Cash Renamed"
	_, err = svc.Update(context.Background(), "1010", UpdateInput{Name: &name, UpdatedBy: "admin"})
	require.ErrorIs(t, err, ErrSystemAccountImmutable)

	_, err = svc.Deactivate(context.Background(), "1010", "admin")
	require.ErrorIs(t, err, ErrSystemAccountImmutable)
}

func TestUpdateMutatesOnlyAllowedFields(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Code: "5020", Name: "Office Supplies", Type: AccountTypeExpense, CreatedBy: "seed"})
	require.NoError(t, err)

	name := "Office & Admin Supplies"
	updated, err := svc.Update(context.Background(), "5020", UpdateInput{Name: &name, UpdatedBy: "admin"})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
	require.Equal(t, AccountTypeExpense, updated.Type)
	require.Equal(t, SideDebit, updated.NormalBalance)
}

func TestMovementDeltaSignRule(t *testing.T) {
	// DEBIT-normal accounts grow on debits, shrink on credits.
	require.Equal(t, 500.0, MovementDelta(SideDebit, SideDebit, 500))
	require.Equal(t, -500.0, MovementDelta(SideDebit, SideCredit, 500))
	// CREDIT-normal accounts grow on credits, shrink on debits.
	require.Equal(t, 500.0, MovementDelta(SideCredit, SideCredit, 500))
	require.Equal(t, -500.0, MovementDelta(SideCredit, SideDebit, 500))
}

func TestLookupMissReportsNotFound(t *testing.T) {
	svc := NewService(newMemoryStore(), nil)

	_, err := svc.Lookup(context.Background(), "0000")
	require.ErrorIs(t, err, ErrAccountNotFound)
}
