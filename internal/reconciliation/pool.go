package reconciliation

import (
	"fmt"

	"github.com/bank-reconciliation/internal/domain/match"
	"github.com/bank-reconciliation/internal/domain/transaction"
)

// Pool holds the pending transactions of one side in insertion order.
// It is not safe for concurrent use on its own; the Engine is the sole
// mutator and serializes every access.
type Pool struct {
	origin transaction.Origin
	order  []string
	byID   map[string]transaction.Transaction
}

// NewPool creates an empty pending pool for the given side
func NewPool(origin transaction.Origin) *Pool {
	return &Pool{
		origin: origin,
		byID:   make(map[string]transaction.Transaction),
	}
}

// Origin returns the side this pool belongs to
func (p *Pool) Origin() transaction.Origin {
	return p.origin
}

// Len returns the number of pending transactions
func (p *Pool) Len() int {
	return len(p.order)
}

// Contains reports whether the given ID is pending in this pool
func (p *Pool) Contains(id string) bool {
	_, ok := p.byID[id]
	return ok
}

// Get returns the pending transaction with the given ID, if present
func (p *Pool) Get(id string) (transaction.Transaction, bool) {
	tx, ok := p.byID[id]
	return tx, ok
}

// Append adds a transaction at the end of the pool. The caller (the Engine)
// must have already established that the ID is unused anywhere; a duplicate
// within the pool itself is an invariant violation, not a user error.
func (p *Pool) Append(tx transaction.Transaction) error {
	if tx.Origin != p.origin {
		return match.ErrInternalInconsistency{
			ID:     tx.ID,
			Detail: fmt.Sprintf("origin %s offered to the %s pool", tx.Origin, p.origin),
		}
	}
	if _, ok := p.byID[tx.ID]; ok {
		return match.ErrInternalInconsistency{ID: tx.ID, Detail: "duplicate ID reached pool append"}
	}
	p.byID[tx.ID] = tx
	p.order = append(p.order, tx.ID)
	return nil
}

// Remove deletes the given IDs from the pool. All-or-nothing: if any ID is
// absent it returns ErrNotFound for the first missing one and the pool is
// left untouched.
func (p *Pool) Remove(ids []string) error {
	for _, id := range ids {
		if _, ok := p.byID[id]; !ok {
			return match.ErrNotFound{Origin: p.origin, ID: id}
		}
	}

	removed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		delete(p.byID, id)
		removed[id] = struct{}{}
	}

	kept := p.order[:0]
	for _, id := range p.order {
		if _, gone := removed[id]; !gone {
			kept = append(kept, id)
		}
	}
	p.order = kept
	return nil
}

// Snapshot returns a copy of the pending transactions in insertion order.
// The copy never aliases internal state, so readers can hold it while the
// Engine keeps mutating.
func (p *Pool) Snapshot() []transaction.Transaction {
	out := make([]transaction.Transaction, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.byID[id])
	}
	return out
}
