package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arthaledger/arthaledger/internal/accounts"
	"github.com/arthaledger/arthaledger/internal/journal"
	"github.com/arthaledger/arthaledger/internal/shared"
)

// sourceModule tags depreciation postings for idempotency.
const sourceModule = "ASSET"

// runConcurrency bounds parallel asset computations in a scheduled run.
const runConcurrency = 4

// JournalPort submits depreciation entries through the posting pipeline.
type JournalPort interface {
	CreateAndPost(ctx context.Context, input journal.CreateInput) (journal.Entry, error)
}

// CollateralChecker answers whether an asset is pledged against a loan.
// A nil checker means no collateral integration is wired.
type CollateralChecker interface {
	IsPledged(ctx context.Context, assetCode string) (bool, error)
}

// AuditPort records asset events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts depreciation activity.
type MetricsPort interface {
	CountDepreciationRun()
}

// PostingAccounts are the fallback ledger accounts for depreciation entries
// when a category carries no explicit mapping.
type PostingAccounts struct {
	Expense     string
	Accumulated string
}

// RunResult summarises one scheduled depreciation run.
type RunResult struct {
	Processed     int64 `json:"processed"`
	Posted        int64 `json:"posted"`
	AlreadyPosted int64 `json:"already_posted"`
	Skipped       int64 `json:"skipped"`
	Failed        int64 `json:"failed"`
}

// Service owns the fixed asset register and the depreciation engine.
type Service struct {
	store      Store
	journals   JournalPort
	collateral CollateralChecker
	audit      AuditPort
	metrics    MetricsPort
	fallback   PostingAccounts
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs the asset service.
func NewService(store Store, journals JournalPort, collateral CollateralChecker, audit AuditPort, metrics MetricsPort, fallback PostingAccounts, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		journals:   journals,
		collateral: collateral,
		audit:      audit,
		metrics:    metrics,
		fallback:   fallback,
		logger:     logger,
		now:        time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RegisterCategory creates an asset category.
func (s *Service) RegisterCategory(ctx context.Context, input RegisterCategoryInput) (Category, error) {
	if err := input.Validate(); err != nil {
		return Category{}, err
	}
	method := input.DefaultMethod
	if method == "" {
		method = MethodStraightLine
	}
	category, err := s.store.InsertCategory(ctx, Category{
		Code:                   input.Code,
		Name:                   input.Name,
		AssetAccountCode:       input.AssetAccountCode,
		ExpenseAccountCode:     input.ExpenseAccountCode,
		AccumulatedAccountCode: input.AccumulatedAccountCode,
		DefaultMethod:          method,
		DefaultRatePercent:     input.DefaultRatePercent,
		DefaultUsefulLifeYears: input.DefaultUsefulLifeYears,
	})
	if err != nil {
		return Category{}, err
	}
	return category, nil
}

// Categories lists all categories.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.store.ListCategories(ctx)
}

// Register stores a fixed asset at acquisition. Depreciation settings left
// zero inherit the category defaults; book value starts at purchase cost.
func (s *Service) Register(ctx context.Context, input RegisterAssetInput) (FixedAsset, error) {
	if err := input.Validate(); err != nil {
		return FixedAsset{}, err
	}
	category, err := s.store.GetCategory(ctx, input.CategoryCode)
	if err != nil {
		return FixedAsset{}, err
	}
	method := input.Method
	if method == "" {
		method = category.DefaultMethod
	}
	rate := input.RatePercent
	if rate == 0 {
		rate = category.DefaultRatePercent
	}
	life := input.UsefulLifeYears
	if life == 0 {
		life = category.DefaultUsefulLifeYears
	}
	asset, err := s.store.Insert(ctx, FixedAsset{
		Code:            input.Code,
		Name:            input.Name,
		CategoryCode:    category.Code,
		PurchaseCost:    input.PurchaseCost,
		PurchaseDate:    input.PurchaseDate,
		UsefulLifeYears: life,
		Method:          method,
		RatePercent:     rate,
		ResidualValue:   input.ResidualValue,
		Status:          StatusActive,
		PurchaseEntryID: input.PurchaseEntryID,
		CreatedBy:       input.CreatedBy,
	})
	if err != nil {
		return FixedAsset{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "asset.register", asset.Code, map[string]any{
		"category": asset.CategoryCode,
		"cost":     asset.PurchaseCost,
	})
	return asset, nil
}

// Get fetches one asset by code.
func (s *Service) Get(ctx context.Context, code string) (FixedAsset, error) {
	return s.store.GetByCode(ctx, code)
}

// List returns assets matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]FixedAsset, error) {
	return s.store.List(ctx, filter)
}

// Compute recalculates accumulated depreciation and book value as of a date.
// The whole result is derived from scratch, so repeated calls with the same
// asOf converge instead of compounding. The asset row stays locked for the
// duration so a concurrent disposal cannot interleave.
func (s *Service) Compute(ctx context.Context, code string, asOf time.Time) (FixedAsset, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	var result FixedAsset
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		asset, err := tx.GetForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if asset.Method == MethodNone || asset.Status == StatusDisposed {
			result = asset
			return nil
		}
		if asset.PurchaseDate == nil {
			return fmt.Errorf("%w: %s", ErrMissingPurchaseDate, asset.Code)
		}
		years := FractionalYears(*asset.PurchaseDate, asOf)
		accumulated, err := AccumulatedAt(asset.Method, asset.PurchaseCost, asset.ResidualValue, asset.RatePercent, asset.UsefulLifeYears, years)
		if err != nil {
			return err
		}
		asset.AccumulatedDepreciation = accumulated
		asset.CurrentBookValue = asset.PurchaseCost - accumulated
		asset.LastComputedAt = &asOf
		if asset.Status == StatusActive && depreciatedAt(accumulated, asset.PurchaseCost, asset.ResidualValue) {
			asset.Status = StatusDepreciated
		}
		if err := tx.SaveComputation(ctx, asset); err != nil {
			return err
		}
		result = asset
		return nil
	})
	if err != nil {
		return FixedAsset{}, err
	}
	return result, nil
}

// RunDepreciation computes every depreciable asset as of a date and posts the
// newly recognised expense to the ledger. Assets are independent, so they are
// processed in parallel. The posting amount is the gap between the computed
// accumulated figure and the posted_depreciation watermark, which only
// advances once the journal entry has settled: a batch that failed mid-way
// re-posts the missing amount on the next run instead of skipping it, and the
// per-asset-per-month source link stops the same period from posting twice.
func (s *Service) RunDepreciation(ctx context.Context, asOf time.Time, actor string) (RunResult, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	assets, err := s.store.ListDepreciable(ctx)
	if err != nil {
		return RunResult{}, err
	}
	var posted, alreadyPosted, skipped, failed atomic.Int64
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runConcurrency)
	for _, asset := range assets {
		asset := asset
		group.Go(func() error {
			updated, err := s.Compute(ctx, asset.Code, asOf)
			if err != nil {
				failed.Add(1)
				s.logger.Error("depreciation compute failed",
					slog.String("asset_code", asset.Code), slog.Any("error", err))
				return nil
			}
			delta := updated.AccumulatedDepreciation - updated.PostedDepreciation
			if delta < roundingEpsilon {
				skipped.Add(1)
				return nil
			}
			err = s.postDepreciation(ctx, updated, delta, asOf, actor)
			switch {
			case err == nil:
				posted.Add(1)
			case isAlreadyPosted(err):
				alreadyPosted.Add(1)
			default:
				failed.Add(1)
				s.logger.Error("depreciation posting failed",
					slog.String("asset_code", asset.Code), slog.Any("error", err))
				return nil
			}
			// The month's entry is in the ledger either way; if this update is
			// lost the next run settles through the source link and retries it.
			if err := s.store.AdvancePostedDepreciation(ctx, updated.Code, updated.AccumulatedDepreciation); err != nil {
				s.logger.Error("advancing posted depreciation failed",
					slog.String("asset_code", updated.Code), slog.Any("error", err))
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return RunResult{}, err
	}
	if s.metrics != nil {
		s.metrics.CountDepreciationRun()
	}
	result := RunResult{
		Processed:     int64(len(assets)),
		Posted:        posted.Load(),
		AlreadyPosted: alreadyPosted.Load(),
		Skipped:       skipped.Load(),
		Failed:        failed.Load(),
	}
	s.recordAudit(ctx, actor, "asset.depreciation_run", asOf.Format("2006-01"), map[string]any{
		"processed": result.Processed,
		"posted":    result.Posted,
		"failed":    result.Failed,
	})
	return result, nil
}

func (s *Service) postDepreciation(ctx context.Context, asset FixedAsset, amount float64, asOf time.Time, actor string) error {
	expense, accumulated := s.fallback.Expense, s.fallback.Accumulated
	category, err := s.store.GetCategory(ctx, asset.CategoryCode)
	if err == nil {
		if category.ExpenseAccountCode != nil && *category.ExpenseAccountCode != "" {
			expense = *category.ExpenseAccountCode
		}
		if category.AccumulatedAccountCode != nil && *category.AccumulatedAccountCode != "" {
			accumulated = *category.AccumulatedAccountCode
		}
	}
	period := asOf.Format("2006-01")
	_, err = s.journals.CreateAndPost(ctx, journal.CreateInput{
		Date:         asOf,
		Description:  fmt.Sprintf("Depreciation of %s through %s", asset.Name, period),
		Reference:    asset.Code,
		Type:         journal.TypeDepreciation,
		SourceModule: sourceModule,
		SourceID:     depreciationSourceID(asset.Code, period),
		CreatedBy:    actor,
		Lines: []journal.LineInput{
			{AccountCode: expense, Side: accounts.SideDebit, Amount: amount},
			{AccountCode: accumulated, Side: accounts.SideCredit, Amount: amount},
		},
	})
	return err
}

// depreciationSourceID derives a stable id per asset and period so one month's
// expense for one asset can only ever post once.
func depreciationSourceID(assetCode, period string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("depreciation:"+assetCode+":"+period))
}

func isAlreadyPosted(err error) bool {
	return errors.Is(err, journal.ErrSourceAlreadyLinked)
}

// Dispose terminates an asset's lifecycle. Pledged collateral blocks
// disposal; the follow-on ledger posting is the caller's explicit request.
func (s *Service) Dispose(ctx context.Context, code string, value float64, date time.Time, actor string) (FixedAsset, error) {
	if s.collateral != nil {
		pledged, err := s.collateral.IsPledged(ctx, code)
		if err != nil {
			return FixedAsset{}, err
		}
		if pledged {
			return FixedAsset{}, fmt.Errorf("%w: %s", ErrAssetPledged, code)
		}
	}
	var result FixedAsset
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		asset, err := tx.GetForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if asset.Status == StatusDisposed {
			return fmt.Errorf("%w: %s", ErrAssetDisposed, code)
		}
		asset.Status = StatusDisposed
		asset.DisposalDate = &date
		asset.DisposalValue = &value
		if err := tx.MarkDisposed(ctx, asset); err != nil {
			return err
		}
		result = asset
		return nil
	})
	if err != nil {
		return FixedAsset{}, err
	}
	s.recordAudit(ctx, actor, "asset.dispose", code, map[string]any{
		"disposal_value": value,
		"disposal_date":  date.Format("2006-01-02"),
	})
	return result, nil
}

// ChangeStatus moves an asset between non-terminal states, e.g. sending it to
// maintenance or flagging it stolen. Disposal goes through Dispose.
func (s *Service) ChangeStatus(ctx context.Context, code string, status Status, actor string) (FixedAsset, error) {
	if !status.Valid() || status == StatusDisposed {
		return FixedAsset{}, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	var result FixedAsset
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		asset, err := tx.GetForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if asset.Status == StatusDisposed {
			return fmt.Errorf("%w: %s", ErrAssetDisposed, code)
		}
		if err := tx.SetStatus(ctx, code, status); err != nil {
			return err
		}
		asset.Status = status
		result = asset
		return nil
	})
	if err != nil {
		return FixedAsset{}, err
	}
	s.recordAudit(ctx, actor, "asset.status", code, map[string]any{"status": string(status)})
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "fixed_asset",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
