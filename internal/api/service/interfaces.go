package service

import (
	"context"
	"io"

	"github.com/bank-reconciliation/internal/domain/match"
	"github.com/bank-reconciliation/internal/domain/transaction"
	"github.com/bank-reconciliation/internal/reconciliation"
	"github.com/bank-reconciliation/internal/report"
)

// ReconciliationService defines the interface for reconciliation operations.
// The engine stays the single source of truth; the service adds the durable
// side effects (archive, event stream, snapshot store) around it.
type ReconciliationService interface {
	// IngestStatement parses a statement file for one side and admits the
	// parsed transactions into that side's pending pool
	IngestStatement(ctx context.Context, origin transaction.Origin, r io.Reader) (reconciliation.AdmitResult, error)

	// AdmitTransactions admits already-structured transactions, minting IDs
	// where missing. Duplicates are skipped per item, never failing the batch.
	AdmitTransactions(ctx context.Context, txs []transaction.Transaction) (reconciliation.AdmitResult, error)

	// MatchOneToOne pairs one bank transaction with one accounting transaction
	MatchOneToOne(ctx context.Context, correlationID, bankID, accountingID string) (match.Result, error)

	// MatchOneToMany pairs one bank transaction against several accounting
	// transactions
	MatchOneToMany(ctx context.Context, correlationID, bankID string, accountingIDs []string) (match.Result, error)

	// MatchManyToOne pairs several bank transactions against one accounting
	// transaction
	MatchManyToOne(ctx context.Context, correlationID string, bankIDs []string, accountingID string) (match.Result, error)

	// MatchAuto runs one deterministic automatic matching pass
	MatchAuto(ctx context.Context, correlationID string) (match.Result, error)

	// Pending returns an insertion-ordered snapshot of one side's pool
	Pending(origin transaction.Origin) ([]transaction.Transaction, error)

	// MatchedPairs returns the in-memory ledger in append order
	MatchedPairs() []match.MatchedPair

	// ArchivedMatches returns paginated archive entries plus the total count
	ArchivedMatches(ctx context.Context, page, perPage int) ([]match.ArchiveEntry, int64, error)

	// BuildReport assembles the reconciliation report from one consistent
	// engine snapshot
	BuildReport() report.Report

	// Clear wipes the engine, the snapshot store, and the archive
	Clear(ctx context.Context) error
}
