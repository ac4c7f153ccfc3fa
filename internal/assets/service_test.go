package assets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arthaledger/arthaledger/internal/journal"
)

type memoryStore struct {
	categories map[string]*Category
	assets     map[string]*FixedAsset
	nextID     int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		categories: make(map[string]*Category),
		assets:     make(map[string]*FixedAsset),
	}
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, &memoryTxStore{store: s})
}

func (s *memoryStore) InsertCategory(ctx context.Context, c Category) (Category, error) {
	if _, ok := s.categories[c.Code]; ok {
		return Category{}, ErrDuplicateCode
	}
	s.nextID++
	c.ID = s.nextID
	c.IsActive = true
	stored := c
	s.categories[c.Code] = &stored
	return c, nil
}

func (s *memoryStore) GetCategory(ctx context.Context, code string) (Category, error) {
	c, ok := s.categories[code]
	if !ok {
		return Category{}, ErrCategoryNotFound
	}
	return *c, nil
}

func (s *memoryStore) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	for _, c := range s.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (s *memoryStore) Insert(ctx context.Context, a FixedAsset) (FixedAsset, error) {
	if _, ok := s.assets[a.Code]; ok {
		return FixedAsset{}, ErrDuplicateCode
	}
	s.nextID++
	a.ID = s.nextID
	a.CurrentBookValue = a.PurchaseCost
	stored := a
	s.assets[a.Code] = &stored
	return a, nil
}

func (s *memoryStore) GetByCode(ctx context.Context, code string) (FixedAsset, error) {
	a, ok := s.assets[code]
	if !ok {
		return FixedAsset{}, ErrAssetNotFound
	}
	return *a, nil
}

func (s *memoryStore) List(ctx context.Context, filter ListFilter) ([]FixedAsset, error) {
	var out []FixedAsset
	for _, a := range s.assets {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Category != "" && a.CategoryCode != filter.Category {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *memoryStore) AdvancePostedDepreciation(ctx context.Context, code string, amount float64) error {
	a, ok := s.assets[code]
	if !ok {
		return ErrAssetNotFound
	}
	if amount > a.PostedDepreciation {
		a.PostedDepreciation = amount
	}
	return nil
}

func (s *memoryStore) ListDepreciable(ctx context.Context) ([]FixedAsset, error) {
	var out []FixedAsset
	for _, a := range s.assets {
		if a.Method == MethodNone {
			continue
		}
		if a.Status != StatusActive && a.Status != StatusUnderMaintenance {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

type memoryTxStore struct {
	store *memoryStore
}

func (s *memoryTxStore) GetForUpdate(ctx context.Context, code string) (FixedAsset, error) {
	return s.store.GetByCode(ctx, code)
}

func (s *memoryTxStore) SaveComputation(ctx context.Context, asset FixedAsset) error {
	current, ok := s.store.assets[asset.Code]
	if !ok {
		return ErrAssetNotFound
	}
	current.AccumulatedDepreciation = asset.AccumulatedDepreciation
	current.CurrentBookValue = asset.CurrentBookValue
	current.Status = asset.Status
	current.LastComputedAt = asset.LastComputedAt
	return nil
}

func (s *memoryTxStore) MarkDisposed(ctx context.Context, asset FixedAsset) error {
	current, ok := s.store.assets[asset.Code]
	if !ok {
		return ErrAssetNotFound
	}
	current.Status = StatusDisposed
	current.DisposalDate = asset.DisposalDate
	current.DisposalValue = asset.DisposalValue
	current.DisposalEntryID = asset.DisposalEntryID
	return nil
}

func (s *memoryTxStore) SetStatus(ctx context.Context, code string, status Status) error {
	current, ok := s.store.assets[code]
	if !ok {
		return ErrAssetNotFound
	}
	current.Status = status
	return nil
}

type journalStub struct {
	posted []journal.CreateInput
	linked map[string]bool
}

func (j *journalStub) CreateAndPost(ctx context.Context, input journal.CreateInput) (journal.Entry, error) {
	if j.linked == nil {
		j.linked = make(map[string]bool)
	}
	key := input.SourceModule + ":" + input.SourceID.String()
	if j.linked[key] {
		return journal.Entry{}, journal.ErrSourceAlreadyLinked
	}
	if err := input.Validate(); err != nil {
		return journal.Entry{}, err
	}
	j.linked[key] = true
	j.posted = append(j.posted, input)
	return journal.Entry{ID: int64(len(j.posted)), Status: journal.StatusPosted}, nil
}

// flakyJournal fails a fixed number of postings before behaving normally,
// standing in for transient ledger outages during a batch run.
type flakyJournal struct {
	journalStub
	failures int
}

func (j *flakyJournal) CreateAndPost(ctx context.Context, input journal.CreateInput) (journal.Entry, error) {
	if j.failures > 0 {
		j.failures--
		return journal.Entry{}, errors.New("connection reset")
	}
	return j.journalStub.CreateAndPost(ctx, input)
}

type pledgeStub struct {
	pledged map[string]bool
}

func (p *pledgeStub) IsPledged(ctx context.Context, assetCode string) (bool, error) {
	return p.pledged[assetCode], nil
}

func fixture(t *testing.T) (*Service, *memoryStore, *journalStub) {
	t.Helper()
	store := newMemoryStore()
	_, err := store.InsertCategory(context.Background(), Category{
		Code:                   "VEHICLE",
		Name:                   "Vehicles",
		DefaultMethod:          MethodStraightLine,
		DefaultUsefulLifeYears: 5,
	})
	require.NoError(t, err)
	journals := &journalStub{}
	svc := NewService(store, journals, nil, nil, nil, PostingAccounts{Expense: "5040", Accumulated: "1590"}, nil)
	return svc, store, journals
}

func registerAsset(t *testing.T, svc *Service, code string, cost float64, purchased time.Time) FixedAsset {
	t.Helper()
	asset, err := svc.Register(context.Background(), RegisterAssetInput{
		Code:         code,
		Name:         "Pickup " + code,
		CategoryCode: "VEHICLE",
		PurchaseCost: cost,
		PurchaseDate: &purchased,
		CreatedBy:    "admin",
	})
	require.NoError(t, err)
	return asset
}

func TestRegisterInheritsCategoryDefaults(t *testing.T) {
	svc, _, _ := fixture(t)

	asset := registerAsset(t, svc, "VH-001", 120000, date(2024, time.January, 10))
	require.Equal(t, MethodStraightLine, asset.Method)
	require.Equal(t, 5, asset.UsefulLifeYears)
	require.Equal(t, StatusActive, asset.Status)
	require.InDelta(t, 120000, asset.CurrentBookValue, 0.001)
	require.Zero(t, asset.AccumulatedDepreciation)
}

func TestRegisterUnknownCategory(t *testing.T) {
	svc, _, _ := fixture(t)

	_, err := svc.Register(context.Background(), RegisterAssetInput{
		Code:         "VH-009",
		Name:         "Truck",
		CategoryCode: "MACHINERY",
		PurchaseCost: 1000,
		CreatedBy:    "admin",
	})
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestComputeStraightLineScenario(t *testing.T) {
	svc, _, _ := fixture(t)
	registerAsset(t, svc, "VH-001", 120000, date(2024, time.January, 10))

	asset, err := svc.Compute(context.Background(), "VH-001", date(2026, time.January, 10))
	require.NoError(t, err)
	require.InDelta(t, 48000, asset.AccumulatedDepreciation, 0.001)
	require.InDelta(t, 72000, asset.CurrentBookValue, 0.001)
	require.Equal(t, StatusActive, asset.Status)
}

func TestComputeIsIdempotentForFixedAsOf(t *testing.T) {
	svc, _, _ := fixture(t)
	registerAsset(t, svc, "VH-001", 120000, date(2024, time.January, 10))
	asOf := date(2026, time.January, 10)

	first, err := svc.Compute(context.Background(), "VH-001", asOf)
	require.NoError(t, err)
	second, err := svc.Compute(context.Background(), "VH-001", asOf)
	require.NoError(t, err)
	require.Equal(t, first.AccumulatedDepreciation, second.AccumulatedDepreciation)
	require.Equal(t, first.CurrentBookValue, second.CurrentBookValue)
}

func TestComputeMarksFullyDepreciated(t *testing.T) {
	svc, _, _ := fixture(t)
	registerAsset(t, svc, "VH-001", 120000, date(2020, time.January, 1))

	asset, err := svc.Compute(context.Background(), "VH-001", date(2026, time.January, 1))
	require.NoError(t, err)
	require.InDelta(t, 120000, asset.AccumulatedDepreciation, 0.001)
	require.InDelta(t, 0, asset.CurrentBookValue, 0.001)
	require.Equal(t, StatusDepreciated, asset.Status)
}

func TestComputeMissingPurchaseDate(t *testing.T) {
	svc, _, _ := fixture(t)
	_, err := svc.Register(context.Background(), RegisterAssetInput{
		Code:         "VH-002",
		Name:         "Van",
		CategoryCode: "VEHICLE",
		PurchaseCost: 50000,
		CreatedBy:    "admin",
	})
	require.NoError(t, err)

	_, err = svc.Compute(context.Background(), "VH-002", date(2026, time.January, 1))
	require.ErrorIs(t, err, ErrMissingPurchaseDate)
}

func TestComputeUnknownAsset(t *testing.T) {
	svc, _, _ := fixture(t)

	_, err := svc.Compute(context.Background(), "VH-404", date(2026, time.January, 1))
	require.ErrorIs(t, err, ErrAssetNotFound)
}

func TestComputeNoneMethodLeavesAssetUnchanged(t *testing.T) {
	svc, store, _ := fixture(t)
	registerAsset(t, svc, "VH-003", 80000, date(2024, time.January, 1))
	store.assets["VH-003"].Method = MethodNone

	asset, err := svc.Compute(context.Background(), "VH-003", date(2026, time.January, 1))
	require.NoError(t, err)
	require.Zero(t, asset.AccumulatedDepreciation)
	require.InDelta(t, 80000, asset.CurrentBookValue, 0.001)
}

func TestRunDepreciationPostsBalancedEntries(t *testing.T) {
	svc, _, journals := fixture(t)
	registerAsset(t, svc, "VH-001", 120000, date(2024, time.January, 10))
	registerAsset(t, svc, "VH-002", 60000, date(2025, time.January, 10))

	result, err := svc.RunDepreciation(context.Background(), date(2026, time.January, 15), "scheduler")
	require.NoError(t, err)
	require.EqualValues(t, 2, result.Processed)
	require.EqualValues(t, 2, result.Posted)
	require.Zero(t, result.Failed)

	require.Len(t, journals.posted, 2)
	for _, input := range journals.posted {
		require.Equal(t, journal.TypeDepreciation, input.Type)
		require.Equal(t, "ASSET", input.SourceModule)
		require.Len(t, input.Lines, 2)
		require.Equal(t, "5040", input.Lines[0].AccountCode)
		require.Equal(t, "1590", input.Lines[1].AccountCode)
		require.InDelta(t, input.Lines[0].Amount, input.Lines[1].Amount, 0.001)
	}
}

func TestRunDepreciationIsIdempotentPerMonth(t *testing.T) {
	svc, _, journals := fixture(t)
	registerAsset(t, svc, "VH-001", 120000, date(2024, time.January, 10))
	asOf := date(2026, time.January, 15)

	first, err := svc.RunDepreciation(context.Background(), asOf, "scheduler")
	require.NoError(t, err)
	require.EqualValues(t, 1, first.Posted)

	// The store keeps the accumulated figure, so a re-run finds no new delta.
	second, err := svc.RunDepreciation(context.Background(), asOf, "scheduler")
	require.NoError(t, err)
	require.Zero(t, second.Posted)
	require.EqualValues(t, 1, second.Skipped)
	require.Len(t, journals.posted, 1)
}

func TestRunDepreciationRecoversFromTransientPostingFailure(t *testing.T) {
	store := newMemoryStore()
	_, err := store.InsertCategory(context.Background(), Category{Code: "VEHICLE", Name: "Vehicles", DefaultMethod: MethodStraightLine, DefaultUsefulLifeYears: 5})
	require.NoError(t, err)
	journals := &flakyJournal{failures: 1}
	svc := NewService(store, journals, nil, nil, nil, PostingAccounts{Expense: "5040", Accumulated: "1590"}, nil)
	registerAsset(t, svc, "VH-001", 120000, date(2024, time.January, 10))
	asOf := date(2026, time.January, 15)

	first, err := svc.RunDepreciation(context.Background(), asOf, "scheduler")
	require.NoError(t, err)
	require.EqualValues(t, 1, first.Failed)
	require.Empty(t, journals.posted)

	// The computed figure is already stored, but the ledger never saw it;
	// the retry must still post the full amount, not skip it.
	second, err := svc.RunDepreciation(context.Background(), asOf, "scheduler")
	require.NoError(t, err)
	require.EqualValues(t, 1, second.Posted)
	require.Zero(t, second.Skipped)
	require.Len(t, journals.posted, 1)
	require.InDelta(t, 48000, journals.posted[0].Lines[0].Amount, 0.001)

	third, err := svc.RunDepreciation(context.Background(), asOf, "scheduler")
	require.NoError(t, err)
	require.EqualValues(t, 1, third.Skipped)
	require.Len(t, journals.posted, 1)
}

func TestRunDepreciationSettlesWhenWatermarkUpdateWasLost(t *testing.T) {
	svc, store, journals := fixture(t)
	registerAsset(t, svc, "VH-001", 120000, date(2024, time.January, 10))
	asOf := date(2026, time.January, 15)

	first, err := svc.RunDepreciation(context.Background(), asOf, "scheduler")
	require.NoError(t, err)
	require.EqualValues(t, 1, first.Posted)

	// Simulate a crash between the journal commit and the watermark update.
	store.assets["VH-001"].PostedDepreciation = 0

	second, err := svc.RunDepreciation(context.Background(), asOf, "scheduler")
	require.NoError(t, err)
	require.EqualValues(t, 1, second.AlreadyPosted)
	require.Zero(t, second.Failed)
	// The source link settles the replay and the watermark catches up.
	require.Len(t, journals.posted, 1)
	require.InDelta(t, 48000, store.assets["VH-001"].PostedDepreciation, 0.001)
}

func TestRunDepreciationUsesCategoryAccountMapping(t *testing.T) {
	svc, store, journals := fixture(t)
	expense, accumulated := "5041", "1591"
	store.categories["VEHICLE"].ExpenseAccountCode = &expense
	store.categories["VEHICLE"].AccumulatedAccountCode = &accumulated
	registerAsset(t, svc, "VH-001", 120000, date(2024, time.January, 10))

	_, err := svc.RunDepreciation(context.Background(), date(2026, time.January, 15), "scheduler")
	require.NoError(t, err)
	require.Len(t, journals.posted, 1)
	require.Equal(t, "5041", journals.posted[0].Lines[0].AccountCode)
	require.Equal(t, "1591", journals.posted[0].Lines[1].AccountCode)
}

func TestDisposeBlockedWhilePledged(t *testing.T) {
	store := newMemoryStore()
	_, err := store.InsertCategory(context.Background(), Category{Code: "VEHICLE", Name: "Vehicles", DefaultMethod: MethodStraightLine, DefaultUsefulLifeYears: 5})
	require.NoError(t, err)
	svc := NewService(store, &journalStub{}, &pledgeStub{pledged: map[string]bool{"VH-001": true}}, nil, nil, PostingAccounts{}, nil)
	registerAsset(t, svc, "VH-001", 120000, date(2024, time.January, 10))

	_, err = svc.Dispose(context.Background(), "VH-001", 30000, date(2026, time.February, 1), "manager")
	require.ErrorIs(t, err, ErrAssetPledged)
}

func TestDisposeSetsTerminalState(t *testing.T) {
	svc, store, _ := fixture(t)
	registerAsset(t, svc, "VH-001", 120000, date(2024, time.January, 10))

	asset, err := svc.Dispose(context.Background(), "VH-001", 30000, date(2026, time.February, 1), "manager")
	require.NoError(t, err)
	require.Equal(t, StatusDisposed, asset.Status)
	require.NotNil(t, asset.DisposalDate)
	require.NotNil(t, asset.DisposalValue)
	require.InDelta(t, 30000, *asset.DisposalValue, 0.001)

	_, err = svc.Dispose(context.Background(), "VH-001", 30000, date(2026, time.February, 2), "manager")
	require.ErrorIs(t, err, ErrAssetDisposed)

	// Disposed assets drop out of scheduled runs.
	depreciable, err := store.ListDepreciable(context.Background())
	require.NoError(t, err)
	require.Empty(t, depreciable)
}

func TestChangeStatusRejectsDisposalPath(t *testing.T) {
	svc, _, _ := fixture(t)
	registerAsset(t, svc, "VH-001", 120000, date(2024, time.January, 10))

	_, err := svc.ChangeStatus(context.Background(), "VH-001", StatusDisposed, "manager")
	require.ErrorIs(t, err, ErrInvalidStatus)

	asset, err := svc.ChangeStatus(context.Background(), "VH-001", StatusUnderMaintenance, "manager")
	require.NoError(t, err)
	require.Equal(t, StatusUnderMaintenance, asset.Status)
}
