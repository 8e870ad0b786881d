// Package statestore persists the reconciliation engine state across
// restarts. Pools and ledger are saved as one snapshot so a restore can never
// observe a transaction in two places at once.
package statestore

import (
	"context"

	"github.com/bank-reconciliation/internal/reconciliation"
)

// Store persists engine state snapshots
type Store interface {
	// Save replaces the stored snapshot with the given state
	Save(ctx context.Context, state reconciliation.State) error

	// Load returns the stored snapshot. The boolean is false when no
	// snapshot has been saved yet.
	Load(ctx context.Context) (reconciliation.State, bool, error)

	// Clear removes the stored snapshot
	Clear(ctx context.Context) error
}

// StateSource provides a consistent snapshot of the engine state
type StateSource interface {
	State() reconciliation.State
}
