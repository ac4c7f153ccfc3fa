package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/arthaledger/arthaledger/internal/accounts"
	"github.com/arthaledger/arthaledger/internal/ledger"
	"github.com/arthaledger/arthaledger/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts posting activity.
type MetricsPort interface {
	CountPosting(journalType string)
	CountReversal()
	CountUnresolvedAccount()
}

// Service coordinates creating, posting, approving, and reversing journal
// entries. It is the only component that mutates account balances, and it
// does so only inside the posting transaction.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the journal service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates and stores a new DRAFT entry. Account names are
// snapshotted from the registry; the journal number comes from the per-type
// durable sequence.
func (s *Service) Create(ctx context.Context, input CreateInput) (Entry, error) {
	if err := input.Validate(); err != nil {
		return Entry{}, err
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	debit, credit := input.Totals()

	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, input.Type)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, Entry{
			Number:       number,
			Date:         date,
			Description:  input.Description,
			Reference:    input.Reference,
			Type:         input.Type,
			Status:       StatusDraft,
			SourceModule: input.SourceModule,
			SourceID:     input.SourceID,
			TotalDebit:   debit,
			TotalCredit:  credit,
			CreatedBy:    input.CreatedBy,
		})
		if err != nil {
			return err
		}
		lines := make([]Line, 0, len(input.Lines))
		for idx, in := range input.Lines {
			name := in.AccountName
			account, err := tx.LookupAccount(ctx, in.AccountCode)
			switch {
			case err == nil:
				name = account.Name
			case errors.Is(err, accounts.ErrAccountNotFound):
				s.logger.Warn("journal line references unknown account",
					slog.String("journal_number", number),
					slog.String("account_code", in.AccountCode))
			default:
				return err
			}
			lines = append(lines, Line{
				LineNumber:  idx + 1,
				AccountCode: in.AccountCode,
				AccountName: name,
				Side:        in.Side,
				Amount:      in.Amount,
				Description: in.Description,
				MemberRef:   in.MemberRef,
				LoanRef:     in.LoanRef,
				SavingsRef:  in.SavingsRef,
			})
		}
		stored, err := tx.InsertLines(ctx, inserted.ID, lines)
		if err != nil {
			return err
		}
		if input.SourceModule != "" {
			if err := tx.LinkSource(ctx, input.SourceModule, input.SourceID, inserted.ID); err != nil {
				return err
			}
		}
		inserted.Lines = stored
		entry = inserted
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "journal.create", entry.ID, map[string]any{
		"number": entry.Number,
		"type":   string(entry.Type),
	})
	return entry, nil
}

// Post applies a DRAFT entry to account balances and the general ledger as
// one atomic unit: every line movement, one ledger row per applied line, and
// the status transition commit together or not at all.
func (s *Service) Post(ctx context.Context, id int64, actor string) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return fmt.Errorf("%w: cannot post %s entry", ErrInvalidTransition, current.Status)
		}
		lines, err := tx.GetLines(ctx, current.ID)
		if err != nil {
			return err
		}
		posted, err := s.postLocked(ctx, tx, current, lines, actor)
		if err != nil {
			return err
		}
		entry = posted
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	if s.metrics != nil {
		s.metrics.CountPosting(string(entry.Type))
	}
	s.recordAudit(ctx, actor, "journal.post", entry.ID, map[string]any{
		"number": entry.Number,
	})
	return entry, nil
}

// postLocked runs inside an open transaction holding the entry row lock.
func (s *Service) postLocked(ctx context.Context, tx TxRepository, entry Entry, lines []Line, actor string) (Entry, error) {
	if len(lines) == 0 {
		return Entry{}, ErrEmptyEntry
	}
	var debit, credit float64
	for _, line := range lines {
		if line.Side == accounts.SideDebit {
			debit += line.Amount
		} else {
			credit += line.Amount
		}
	}
	// Defensive re-check; Create already enforces this.
	if math.Abs(debit-credit) >= BalanceEpsilon {
		return Entry{}, fmt.Errorf("%w: debit %.2f credit %.2f", ErrUnbalanced, debit, credit)
	}
	at := s.now()
	for _, line := range lines {
		movement, err := tx.ApplyMovement(ctx, line.AccountCode, line.Side, line.Amount)
		if err != nil {
			return Entry{}, err
		}
		if !movement.Applied {
			// Tolerated data-integrity gap: the balance update is a no-op and
			// no ledger row is written, keeping ledger sums reconcilable.
			s.logger.Warn("posting line against unresolved account",
				slog.String("journal_number", entry.Number),
				slog.String("account_code", line.AccountCode))
			if s.metrics != nil {
				s.metrics.CountUnresolvedAccount()
			}
			continue
		}
		row := ledger.Row{
			AccountCode: line.AccountCode,
			AccountName: movement.AccountName,
			Date:        entry.Date,
			Reference:   entry.Number,
			Description: lineDescription(entry, line),
			Balance:     movement.Balance,
			EntryID:     entry.ID,
			CreatedBy:   actor,
		}
		if line.Side == accounts.SideDebit {
			row.Debit = line.Amount
		} else {
			row.Credit = line.Amount
		}
		if err := tx.AppendLedgerRow(ctx, row); err != nil {
			return Entry{}, err
		}
	}
	if err := tx.MarkPosted(ctx, entry.ID, actor, at); err != nil {
		return Entry{}, err
	}
	entry.Status = StatusPosted
	entry.PostedBy = &actor
	entry.PostedAt = &at
	entry.Lines = lines
	return entry, nil
}

// Approve records a second control point on a POSTED entry. Balances are not
// touched.
func (s *Service) Approve(ctx context.Context, id int64, actor string) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusPosted {
			return fmt.Errorf("%w: cannot approve %s entry", ErrInvalidTransition, current.Status)
		}
		at := s.now()
		if err := tx.MarkApproved(ctx, current.ID, actor, at); err != nil {
			return err
		}
		current.Status = StatusApproved
		current.ApprovedBy = &actor
		current.ApprovedAt = &at
		entry = current
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.recordAudit(ctx, actor, "journal.approve", entry.ID, map[string]any{
		"number": entry.Number,
	})
	return entry, nil
}

// Reverse builds and posts a mirror entry (debits and credits swapped) and
// marks the original REVERSED. The original entry and its ledger rows are
// never altered; the audit trail is the pair of entries.
func (s *Service) Reverse(ctx context.Context, id int64, reason, actor string) (Entry, error) {
	var reversal Entry
	var original Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusPosted && current.Status != StatusApproved {
			return fmt.Errorf("%w: cannot reverse %s entry", ErrInvalidTransition, current.Status)
		}
		lines, err := tx.GetLines(ctx, current.ID)
		if err != nil {
			return err
		}
		number, err := tx.NextNumber(ctx, TypeAdjustment)
		if err != nil {
			return err
		}
		at := s.now()
		inserted, err := tx.InsertEntry(ctx, Entry{
			Number:      number,
			Date:        at,
			Description: reversalDescription(current.Number, reason),
			Reference:   "REV-" + current.Number,
			Type:        TypeAdjustment,
			Status:      StatusDraft,
			TotalDebit:  current.TotalCredit,
			TotalCredit: current.TotalDebit,
			CreatedBy:   actor,
		})
		if err != nil {
			return err
		}
		mirrored, err := tx.InsertLines(ctx, inserted.ID, mirrorLines(lines))
		if err != nil {
			return err
		}
		posted, err := s.postLocked(ctx, tx, inserted, mirrored, actor)
		if err != nil {
			return err
		}
		note := fmt.Sprintf("reversed by %s at %s: %s", actor, at.Format(time.RFC3339), reason)
		if err := tx.MarkReversed(ctx, current.ID, note, at); err != nil {
			return err
		}
		reversal = posted
		original = current
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	if s.metrics != nil {
		s.metrics.CountReversal()
		s.metrics.CountPosting(string(TypeAdjustment))
	}
	s.recordAudit(ctx, actor, "journal.reverse", original.ID, map[string]any{
		"number":          original.Number,
		"reversal_number": reversal.Number,
		"reason":          reason,
	})
	return reversal, nil
}

// CreateAndPost is the auto-post convenience used by workflows that post in
// one step, including the depreciation engine. Create and Post commit
// separately, so a replayed source id may find a DRAFT left behind by an
// interrupted earlier attempt: that draft is posted now instead of being
// mistaken for a completed entry. A source id whose entry already posted
// surfaces ErrSourceAlreadyLinked so callers can settle the replay.
func (s *Service) CreateAndPost(ctx context.Context, input CreateInput) (Entry, error) {
	entry, err := s.Create(ctx, input)
	if errors.Is(err, ErrSourceAlreadyLinked) {
		return s.resumeLinked(ctx, input)
	}
	if err != nil {
		return Entry{}, err
	}
	return s.Post(ctx, entry.ID, input.CreatedBy)
}

func (s *Service) resumeLinked(ctx context.Context, input CreateInput) (Entry, error) {
	existing, err := s.repo.GetBySource(ctx, input.SourceModule, input.SourceID)
	if err != nil {
		return Entry{}, err
	}
	if existing.Status == StatusDraft {
		s.logger.Info("posting draft left by interrupted source-linked create",
			slog.String("journal_number", existing.Number),
			slog.String("source_module", input.SourceModule))
		return s.Post(ctx, existing.ID, input.CreatedBy)
	}
	return existing, fmt.Errorf("%w: %s/%s", ErrSourceAlreadyLinked, input.SourceModule, input.SourceID)
}

// Get fetches one entry with lines.
func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByNumber fetches one entry by journal number.
func (s *Service) GetByNumber(ctx context.Context, number string) (Entry, error) {
	return s.repo.GetByNumber(ctx, number)
}

// GetBySource fetches the entry linked to a source id.
func (s *Service) GetBySource(ctx context.Context, module string, sourceID uuid.UUID) (Entry, error) {
	return s.repo.GetBySource(ctx, module, sourceID)
}

// List returns entries matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}

func mirrorLines(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, Line{
			LineNumber:  line.LineNumber,
			AccountCode: line.AccountCode,
			AccountName: line.AccountName,
			Side:        line.Side.Opposite(),
			Amount:      line.Amount,
			Description: line.Description,
			MemberRef:   line.MemberRef,
			LoanRef:     line.LoanRef,
			SavingsRef:  line.SavingsRef,
		})
	}
	return out
}

func reversalDescription(number, reason string) string {
	if reason == "" {
		return "Reversal of " + number
	}
	return fmt.Sprintf("Reversal of %s: %s", number, reason)
}

func lineDescription(entry Entry, line Line) string {
	if line.Description != nil && *line.Description != "" {
		return *line.Description
	}
	return entry.Description
}
