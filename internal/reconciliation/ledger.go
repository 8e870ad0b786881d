package reconciliation

import (
	"github.com/bank-reconciliation/internal/domain/match"
)

// Ledger is the append-only record of committed matches. Append order is the
// authoritative chronological order of completed matches. The consumed-ID
// indexes exist because fan-out/fan-in matches make the pair list a bipartite
// relation: membership tests must be per transaction ID, not per pair.
type Ledger struct {
	pairs              []match.MatchedPair
	consumedBank       map[string]struct{}
	consumedAccounting map[string]struct{}
}

// NewLedger creates an empty matched-pair ledger
func NewLedger() *Ledger {
	return &Ledger{
		consumedBank:       make(map[string]struct{}),
		consumedAccounting: make(map[string]struct{}),
	}
}

// Append records the given pairs in order. Existing entries are never mutated
// or removed.
func (l *Ledger) Append(pairs ...match.MatchedPair) {
	for _, p := range pairs {
		l.pairs = append(l.pairs, p)
		l.consumedBank[p.BankTransactionID] = struct{}{}
		l.consumedAccounting[p.AccountingTransactionID] = struct{}{}
	}
}

// All returns a copy of the ledger in append order, stable across calls
func (l *Ledger) All() []match.MatchedPair {
	out := make([]match.MatchedPair, len(l.pairs))
	copy(out, l.pairs)
	return out
}

// Len returns the number of recorded pairs
func (l *Ledger) Len() int {
	return len(l.pairs)
}

// ConsumedBank reports whether a bank transaction ID has been matched
func (l *Ledger) ConsumedBank(id string) bool {
	_, ok := l.consumedBank[id]
	return ok
}

// ConsumedAccounting reports whether an accounting transaction ID has been matched
func (l *Ledger) ConsumedAccounting(id string) bool {
	_, ok := l.consumedAccounting[id]
	return ok
}
