package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/bank-reconciliation/internal/domain/transaction"
	"github.com/bank-reconciliation/internal/reconciliation"
)

// Admitter is the slice of the engine ingestion needs: append-only admission
type Admitter interface {
	Admit(txs []transaction.Transaction) (reconciliation.AdmitResult, error)
}

// Service parses uploaded statements on a worker pool so large files never
// run while the engine's mutation lock is held. Admission itself is a single
// engine call at the end: a canceled parse admits nothing, and duplicate
// skips inside the batch are reported per item rather than failing it.
type Service struct {
	engine  Admitter
	pool    *ants.Pool
	logger  *slog.Logger
	formats map[transaction.Origin]CSVFormat
}

// NewService creates an ingestion service backed by a worker pool of the
// given size, with one configured statement format per side.
func NewService(logger *slog.Logger, engine Admitter, poolSize int, bankFormat, accountingFormat CSVFormat) (*Service, error) {
	for _, f := range []CSVFormat{bankFormat, accountingFormat} {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingestion worker pool: %w", err)
	}

	return &Service{
		engine: engine,
		pool:   pool,
		logger: logger,
		formats: map[transaction.Origin]CSVFormat{
			transaction.OriginBank:       bankFormat,
			transaction.OriginAccounting: accountingFormat,
		},
	}, nil
}

type parseOutcome struct {
	txs []transaction.Transaction
	err error
}

// ParseAndAdmit parses the statement for the given side and admits the
// resulting batch. The parse runs on the worker pool; if ctx is canceled
// before it finishes, no admission happens at all.
func (s *Service) ParseAndAdmit(ctx context.Context, r io.Reader, origin transaction.Origin) (reconciliation.AdmitResult, error) {
	format, ok := s.formats[origin]
	if !ok {
		return reconciliation.AdmitResult{}, fmt.Errorf("no statement format configured for origin %q", origin)
	}

	resultChan := make(chan parseOutcome, 1)
	if err := s.pool.Submit(func() {
		txs, err := ParseStatement(r, origin, format)
		resultChan <- parseOutcome{txs: txs, err: err}
	}); err != nil {
		s.logger.Error("failed to submit parse job to worker pool", "origin", origin, "error", err)
		return reconciliation.AdmitResult{}, fmt.Errorf("failed to submit parse job: %w", err)
	}

	var outcome parseOutcome
	select {
	case <-ctx.Done():
		s.logger.Warn("ingestion canceled before admission", "origin", origin, "error", ctx.Err())
		return reconciliation.AdmitResult{}, ctx.Err()
	case outcome = <-resultChan:
	}
	if outcome.err != nil {
		return reconciliation.AdmitResult{}, fmt.Errorf("failed to parse %s statement: %w", origin, outcome.err)
	}

	result, err := s.engine.Admit(outcome.txs)
	if err != nil {
		return reconciliation.AdmitResult{}, err
	}

	s.logger.Info("statement ingested",
		"origin", origin,
		"format", format.Name,
		"parsed", len(outcome.txs),
		"admitted", len(result.Admitted),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// Running returns the number of busy parse workers
func (s *Service) Running() int {
	return s.pool.Running()
}

// Shutdown releases the worker pool
func (s *Service) Shutdown() {
	s.logger.Info("shutting down ingestion worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}
