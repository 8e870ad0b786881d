// Package report builds the reconciliation report: a point-in-time document
// enumerating both pending pools and the matched ledger, with per-side totals.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bank-reconciliation/internal/domain/match"
	"github.com/bank-reconciliation/internal/domain/transaction"
)

// SideSummary aggregates one pending pool
type SideSummary struct {
	PendingCount int             `json:"pending_count"`
	PendingTotal decimal.Decimal `json:"pending_total"`
}

// Report is the exported reconciliation document. It is assembled from
// engine snapshots, so generating it never blocks matching.
type Report struct {
	GeneratedAt       time.Time                 `json:"generated_at"`
	Bank              SideSummary               `json:"bank"`
	Accounting        SideSummary               `json:"accounting"`
	MatchedCount      int                       `json:"matched_count"`
	PendingBank       []transaction.Transaction `json:"pending_bank"`
	PendingAccounting []transaction.Transaction `json:"pending_accounting"`
	MatchedPairs      []match.MatchedPair       `json:"matched_pairs"`
}

// Build assembles a report from pool snapshots and the ledger
func Build(pendingBank, pendingAccounting []transaction.Transaction, matched []match.MatchedPair) Report {
	return Report{
		GeneratedAt:       time.Now().UTC(),
		Bank:              summarize(pendingBank),
		Accounting:        summarize(pendingAccounting),
		MatchedCount:      len(matched),
		PendingBank:       pendingBank,
		PendingAccounting: pendingAccounting,
		MatchedPairs:      matched,
	}
}

func summarize(txs []transaction.Transaction) SideSummary {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return SideSummary{
		PendingCount: len(txs),
		PendingTotal: total,
	}
}
