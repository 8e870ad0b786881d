// Package postgres provides the PostgreSQL implementation of the engine
// state store. The whole state (both pools plus the ledger) is stored as one
// JSONB row, so a restore always sees a mutually consistent snapshot.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/bank-reconciliation/internal/platform/persistence"
	"github.com/bank-reconciliation/internal/reconciliation"
	"github.com/bank-reconciliation/internal/statestore"
)

// StateRepository implements the statestore.Store interface for PostgreSQL
type StateRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewStateRepository creates a new PostgreSQL state repository
func NewStateRepository(logger *slog.Logger, db *persistence.PostgresDB) statestore.Store {
	return &StateRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Save upserts the snapshot. The table holds at most one row; the fixed key
// makes the upsert replace the previous snapshot atomically.
func (r *StateRepository) Save(ctx context.Context, state reconciliation.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal engine state: %w", err)
	}

	query := `
		INSERT INTO engine_state (id, state, saved_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, saved_at = EXCLUDED.saved_at
	`

	if _, err := r.querier.Exec(ctx, query, payload); err != nil {
		r.logger.Error("Failed to save engine state", "error", err)
		return fmt.Errorf("failed to save engine state: %w", err)
	}

	return nil
}

// Load reads the stored snapshot. Returns false when no snapshot exists yet,
// which is the normal first-boot case.
func (r *StateRepository) Load(ctx context.Context) (reconciliation.State, bool, error) {
	query := `
		SELECT state
		FROM engine_state
		WHERE id = 1
	`

	var payload []byte
	err := r.querier.QueryRow(ctx, query).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return reconciliation.State{}, false, nil
		}
		r.logger.Error("Failed to load engine state", "error", err)
		return reconciliation.State{}, false, fmt.Errorf("failed to load engine state: %w", err)
	}

	var state reconciliation.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return reconciliation.State{}, false, fmt.Errorf("failed to unmarshal engine state: %w", err)
	}

	return state, true, nil
}

// Clear removes the stored snapshot
func (r *StateRepository) Clear(ctx context.Context) error {
	query := `
		DELETE FROM engine_state
		WHERE id = 1
	`

	if _, err := r.querier.Exec(ctx, query); err != nil {
		r.logger.Error("Failed to clear engine state", "error", err)
		return fmt.Errorf("failed to clear engine state: %w", err)
	}

	return nil
}
