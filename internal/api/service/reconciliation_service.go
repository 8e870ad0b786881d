package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bank-reconciliation/internal/domain/match"
	"github.com/bank-reconciliation/internal/domain/transaction"
	"github.com/bank-reconciliation/internal/ingestion"
	"github.com/bank-reconciliation/internal/platform/messaging/producers"
	"github.com/bank-reconciliation/internal/reconciliation"
	"github.com/bank-reconciliation/internal/report"
	"github.com/bank-reconciliation/internal/statestore"
)

// ReconciliationServiceImpl implements the ReconciliationService interface
type ReconciliationServiceImpl struct {
	engine    *reconciliation.Engine
	ingestion *ingestion.Service
	archive   match.ArchiveRepository
	publisher producers.MessagePublisher
	snapshots statestore.Store
	logger    *slog.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	logger *slog.Logger,
	engine *reconciliation.Engine,
	ingestionSvc *ingestion.Service,
	archive match.ArchiveRepository,
	publisher producers.MessagePublisher,
	snapshots statestore.Store,
) ReconciliationService {
	return &ReconciliationServiceImpl{
		engine:    engine,
		ingestion: ingestionSvc,
		archive:   archive,
		publisher: publisher,
		snapshots: snapshots,
		logger:    logger,
	}
}

// IngestStatement parses and admits one side's statement file
func (s *ReconciliationServiceImpl) IngestStatement(ctx context.Context, origin transaction.Origin, r io.Reader) (reconciliation.AdmitResult, error) {
	return s.ingestion.ParseAndAdmit(ctx, r, origin)
}

// AdmitTransactions admits already-structured transactions
func (s *ReconciliationServiceImpl) AdmitTransactions(ctx context.Context, txs []transaction.Transaction) (reconciliation.AdmitResult, error) {
	return s.engine.Admit(txs)
}

// MatchOneToOne pairs one bank transaction with one accounting transaction
func (s *ReconciliationServiceImpl) MatchOneToOne(ctx context.Context, correlationID, bankID, accountingID string) (match.Result, error) {
	result, err := s.engine.MatchOneToOne(bankID, accountingID)
	if err != nil {
		return match.Result{}, err
	}
	s.recordMatch(ctx, correlationID, result)
	return result, nil
}

// MatchOneToMany pairs one bank transaction against several accounting ones
func (s *ReconciliationServiceImpl) MatchOneToMany(ctx context.Context, correlationID, bankID string, accountingIDs []string) (match.Result, error) {
	result, err := s.engine.MatchOneBankToManyAccounting(bankID, accountingIDs)
	if err != nil {
		return match.Result{}, err
	}
	s.recordMatch(ctx, correlationID, result)
	return result, nil
}

// MatchManyToOne pairs several bank transactions against one accounting one
func (s *ReconciliationServiceImpl) MatchManyToOne(ctx context.Context, correlationID string, bankIDs []string, accountingID string) (match.Result, error) {
	result, err := s.engine.MatchManyBankToOneAccounting(accountingID, bankIDs)
	if err != nil {
		return match.Result{}, err
	}
	s.recordMatch(ctx, correlationID, result)
	return result, nil
}

// MatchAuto runs one automatic matching pass
func (s *ReconciliationServiceImpl) MatchAuto(ctx context.Context, correlationID string) (match.Result, error) {
	result, err := s.engine.MatchAuto()
	if err != nil {
		return match.Result{}, err
	}
	s.recordMatch(ctx, correlationID, result)
	return result, nil
}

// Pending returns an insertion-ordered snapshot of one side's pool
func (s *ReconciliationServiceImpl) Pending(origin transaction.Origin) ([]transaction.Transaction, error) {
	return s.engine.PendingSnapshot(origin)
}

// MatchedPairs returns the in-memory ledger in append order
func (s *ReconciliationServiceImpl) MatchedPairs() []match.MatchedPair {
	return s.engine.MatchedPairs()
}

// ArchivedMatches returns paginated archive entries plus the total count
func (s *ReconciliationServiceImpl) ArchivedMatches(ctx context.Context, page, perPage int) ([]match.ArchiveEntry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.archive.List(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.archive.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// BuildReport assembles the reconciliation report from one engine snapshot
func (s *ReconciliationServiceImpl) BuildReport() report.Report {
	state := s.engine.State()
	return report.Build(state.Bank, state.Accounting, state.Matched)
}

// Clear wipes the engine, the snapshot store, and the archive. Each target is
// attempted even when an earlier one fails, so a partial outage never leaves
// a stale snapshot that would resurrect cleared data on the next restart.
func (s *ReconciliationServiceImpl) Clear(ctx context.Context) error {
	s.engine.Clear()

	var errs []error
	if err := s.snapshots.Clear(ctx); err != nil {
		s.logger.Error("Failed to clear snapshot store", "error", err)
		errs = append(errs, err)
	}
	if err := s.archive.Clear(ctx); err != nil {
		s.logger.Error("Failed to clear match archive", "error", err)
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Warn("All reconciliation data cleared")
	return nil
}

// recordMatch archives the committed operation and publishes its event. Both
// are best effort: the engine already committed, so a storage or broker
// failure is logged rather than rolled back, and the ledger stays correct.
func (s *ReconciliationServiceImpl) recordMatch(ctx context.Context, correlationID string, result match.Result) {
	if len(result.Pairs) == 0 {
		return
	}

	now := time.Now().UTC()
	entry := match.ArchiveEntry{
		Scenario:      result.Scenario,
		Pairs:         result.Pairs,
		CorrelationID: correlationID,
		RecordedAt:    now,
	}
	if err := s.archive.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to archive committed match",
			"scenario", string(result.Scenario),
			"pairs", len(result.Pairs),
			"correlation_id", correlationID,
			"error", err,
		)
	}

	event := &producers.MatchEvent{
		Scenario:      result.Scenario,
		Pairs:         result.Pairs,
		CorrelationID: correlationID,
		OccurredAt:    now,
	}
	key := correlationID
	if key == "" {
		key = uuid.New().String()
	}
	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.Error("Failed to publish match event",
			"scenario", string(result.Scenario),
			"pairs", len(result.Pairs),
			"correlation_id", correlationID,
			"error", err,
		)
	}
}
