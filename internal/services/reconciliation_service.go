package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"journal-backend/internal/audit"
	"journal-backend/internal/metrics"
	"journal-backend/internal/models"
	"journal-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

// DefaultTolerance is the absolute PnL difference still considered a match
// when neither the copy configuration nor the config file sets one.
var DefaultTolerance = decimal.NewFromInt(5)

// ReconciliationService compares copied trades against the trades they were
// copied from and assigns a verdict to each.
type ReconciliationService interface {
	Reconcile(ctx context.Context, copyParamsID uuid.UUID, caller Caller) (*ReconcileSummary, error)
	Requeue(ctx context.Context, copiedTradeID uuid.UUID, caller Caller) (*models.CopiedTrade, error)
	PendingBatches(ctx context.Context) ([]uuid.UUID, error)
}

// ReconcileSummary counts the verdicts written by one batch.
type ReconcileSummary struct {
	Reconciled int `json:"reconciled"`
	Matched    int `json:"matched"`
	Mismatch   int `json:"mismatch"`
	Missing    int `json:"missing"`
}

func (s *ReconcileSummary) add(verdict string) {
	s.Reconciled++
	switch verdict {
	case models.ReconciliationMatched:
		s.Matched++
	case models.ReconciliationMismatch:
		s.Mismatch++
	case models.ReconciliationMissing:
		s.Missing++
	}
}

type ReconcileOptions struct {
	// DefaultTolerance applies to copy configurations without their own.
	// Nil means DefaultTolerance.
	DefaultTolerance *decimal.Decimal
	Workers          int
	Clock            func() time.Time
	// OpenTradeMaxAge bounds how long a copy may wait for either side's
	// PnL before it is marked missing. Zero waits forever.
	OpenTradeMaxAge time.Duration
}

type reconciliationService struct {
	repos     *repositories.Repositories
	publisher audit.Publisher
	metrics   *metrics.Metrics
	tolerance decimal.Decimal
	workers   int
	maxOpen   time.Duration
	now       func() time.Time
	log       *logger.Entry
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(repos *repositories.Repositories, publisher audit.Publisher, m *metrics.Metrics, opts ReconcileOptions) ReconciliationService {
	tolerance := DefaultTolerance
	if opts.DefaultTolerance != nil {
		tolerance = *opts.DefaultTolerance
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if publisher == nil {
		publisher = audit.NopPublisher{}
	}
	return &reconciliationService{
		repos:     repos,
		publisher: publisher,
		metrics:   m,
		tolerance: tolerance,
		workers:   opts.Workers,
		maxOpen:   opts.OpenTradeMaxAge,
		now:       func() time.Time { return opts.Clock().UTC().Truncate(time.Microsecond) },
		log:       logger.WithField("component", "reconciliation"),
	}
}

// Reconcile assigns verdicts to every executed, still-pending copied trade of
// a copy configuration. Only the initial selection can fail the batch; a
// record whose lookups fail becomes missing and the batch moves on.
//
// If ctx is cancelled mid-batch the verdicts already written stay, and the
// summary of that work is returned along with ctx.Err().
func (s *reconciliationService) Reconcile(ctx context.Context, copyParamsID uuid.UUID, caller Caller) (*ReconcileSummary, error) {
	if !caller.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if copyParamsID == uuid.Nil {
		return nil, ErrMissingCopyParamsID
	}

	params, err := s.repos.CopyParams.GetByID(ctx, copyParamsID)
	if err != nil {
		return nil, fmt.Errorf("failed to load copy params: %w", err)
	}
	if params == nil {
		return nil, ErrCopyParamsNotFound
	}
	if !caller.CanAct(params.OwnerID) {
		return nil, ErrForbidden
	}

	start := time.Now()
	records, err := s.repos.CopiedTrade.ListPendingExecuted(ctx, params.ID, params.OwnerID)
	if err != nil {
		s.metrics.RecordBatch("error", time.Since(start))
		return nil, fmt.Errorf("failed to select pending copied trades: %w", err)
	}

	tolerance := s.tolerance
	if params.Tolerance != nil {
		tolerance = *params.Tolerance
	}

	log := s.log.WithFields(logger.Fields{
		"copy_params_id": params.ID,
		"owner_id":       params.OwnerID,
		"pending":        len(records),
	})

	var (
		mu      sync.Mutex
		summary = &ReconcileSummary{}
	)

	p := pool.New().WithMaxGoroutines(s.workers)
	for _, record := range records {
		if ctx.Err() != nil {
			break
		}
		record := record
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			verdict, applied, err := s.reconcileOne(ctx, params.OwnerID, record, tolerance)
			if err != nil {
				log.WithError(err).WithField("copied_trade_id", record.ID).Warn("Failed to persist verdict")
				s.metrics.RecordError("reconciliation", "persist")
				return
			}
			if !applied {
				return
			}
			s.metrics.RecordVerdict(verdict)
			mu.Lock()
			summary.add(verdict)
			mu.Unlock()
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		s.metrics.RecordBatch("cancelled", time.Since(start))
		log.WithField("reconciled", summary.Reconciled).Warn("Reconciliation cancelled")
		return summary, err
	}

	s.metrics.RecordBatch("success", time.Since(start))
	log.WithFields(logger.Fields{
		"reconciled": summary.Reconciled,
		"matched":    summary.Matched,
		"mismatch":   summary.Mismatch,
		"missing":    summary.Missing,
	}).Info("Reconciliation batch completed")

	if summary.Reconciled > 0 {
		event := audit.NewEvent(audit.ActionReconciliationCompleted, params.OwnerID, "copy_params", params.ID.String(), map[string]interface{}{
			"reconciled": summary.Reconciled,
			"matched":    summary.Matched,
			"mismatch":   summary.Mismatch,
			"missing":    summary.Missing,
			"tolerance":  tolerance.String(),
		})
		if caller.UserID != uuid.Nil {
			event.ActorID = &caller.UserID
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.WithError(err).Warn("Failed to publish reconciliation audit event")
		}
	}

	return summary, nil
}

// reconcileOne decides and persists one verdict. applied is false when the
// record was left pending, either on purpose or because a concurrent batch
// already wrote it.
func (s *reconciliationService) reconcileOne(ctx context.Context, ownerID uuid.UUID, record *models.CopiedTrade, tolerance decimal.Decimal) (string, bool, error) {
	source := s.lookupSource(ctx, ownerID, record)
	if source == nil {
		return s.persistMissing(ctx, record)
	}
	target := s.lookupTarget(ctx, ownerID, record)
	if target == nil {
		return s.persistMissing(ctx, record)
	}

	// An open trade has no PnL yet; it is reconciled on a later pass unless
	// it has waited past maxOpen.
	if source.PnL == nil || target.PnL == nil {
		if s.maxOpen > 0 && s.now().Sub(record.CreatedAt) > s.maxOpen {
			return s.persistMissing(ctx, record)
		}
		return "", false, nil
	}

	difference := target.PnL.Sub(*source.PnL)
	verdict := models.ReconciliationMismatch
	if difference.Abs().LessThanOrEqual(tolerance) {
		verdict = models.ReconciliationMatched
	}

	applied, err := s.repos.CopiedTrade.ApplyVerdict(ctx, record.ID, repositories.VerdictUpdate{
		Status:          verdict,
		ReconciledAt:    s.now(),
		SourceExitPrice: source.ExitPrice,
		CopiedExitPrice: target.ExitPrice,
		SourcePnL:       source.PnL,
		CopiedPnL:       target.PnL,
		PnLDifference:   &difference,
	})
	return verdict, applied, err
}

func (s *reconciliationService) persistMissing(ctx context.Context, record *models.CopiedTrade) (string, bool, error) {
	applied, err := s.repos.CopiedTrade.ApplyVerdict(ctx, record.ID, repositories.VerdictUpdate{
		Status:       models.ReconciliationMissing,
		ReconciledAt: s.now(),
	})
	return models.ReconciliationMissing, applied, err
}

// lookupSource resolves the source side by trade id. Absence, an id that is
// not a trade id, and lookup failures all yield nil.
func (s *reconciliationService) lookupSource(ctx context.Context, ownerID uuid.UUID, record *models.CopiedTrade) *models.Trade {
	id, err := uuid.Parse(record.SourceTradeID)
	if err != nil {
		return nil
	}
	trade, err := s.repos.Trade.GetByIDForOwner(ctx, ownerID, id)
	if err != nil {
		s.logLookupFailure(record, "source", err)
		return nil
	}
	return trade
}

// lookupTarget resolves the copied side through its provenance key.
func (s *reconciliationService) lookupTarget(ctx context.Context, ownerID uuid.UUID, record *models.CopiedTrade) *models.Trade {
	if record.TargetTradeID == nil || *record.TargetTradeID == "" {
		return nil
	}
	trade, err := s.repos.Trade.GetByProvenance(ctx, ownerID, *record.TargetTradeID)
	if err != nil {
		s.logLookupFailure(record, "target", err)
		return nil
	}
	return trade
}

func (s *reconciliationService) logLookupFailure(record *models.CopiedTrade, side string, err error) {
	s.log.WithError(fmt.Errorf("%w: %v", errTransientLookup, err)).WithFields(logger.Fields{
		"copied_trade_id": record.ID,
		"side":            side,
	}).Warn("Trade lookup failed, recording as missing")
	s.metrics.RecordError("reconciliation", "lookup")
}

// Requeue sends a mismatch or missing verdict back to pending so the next
// batch looks at it again.
func (s *reconciliationService) Requeue(ctx context.Context, copiedTradeID uuid.UUID, caller Caller) (*models.CopiedTrade, error) {
	if !caller.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}

	record, err := s.repos.CopiedTrade.GetByID(ctx, copiedTradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load copied trade: %w", err)
	}
	if record == nil {
		return nil, ErrCopiedTradeNotFound
	}
	if !caller.CanAct(record.OwnerID) {
		return nil, ErrForbidden
	}
	if !record.IsRequeueable() {
		return nil, ErrNotRequeueable
	}

	ok, err := s.repos.CopiedTrade.Requeue(ctx, copiedTradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to requeue copied trade: %w", err)
	}
	if !ok {
		return nil, ErrNotRequeueable
	}

	updated, err := s.repos.CopiedTrade.GetByID(ctx, copiedTradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload copied trade: %w", err)
	}

	event := audit.NewEvent(audit.ActionCopiedTradeRequeued, record.OwnerID, "copied_trade", copiedTradeID.String(), map[string]interface{}{
		"previous_status": record.ReconciliationStatus,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).Warn("Failed to publish requeue audit event")
	}

	return updated, nil
}

// PendingBatches lists copy configurations that have work waiting.
func (s *reconciliationService) PendingBatches(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.repos.CopiedTrade.PendingCopyParamsIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending batches: %w", err)
	}
	return ids, nil
}
