package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bank-reconciliation/internal/domain/match"
	"github.com/bank-reconciliation/internal/domain/transaction"
	"github.com/bank-reconciliation/internal/reconciliation"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testState() reconciliation.State {
	return reconciliation.State{
		Bank: []transaction.Transaction{
			{ID: "b1", Description: "wire in", Amount: decimal.RequireFromString("100.00"), Origin: transaction.OriginBank},
		},
		Accounting: []transaction.Transaction{
			{ID: "a1", Description: "invoice 42", Amount: decimal.RequireFromString("100.00"), Origin: transaction.OriginAccounting},
		},
		Matched: []match.MatchedPair{
			{BankTransactionID: "b0", AccountingTransactionID: "a0"},
		},
	}
}

func TestStateRepository_Save(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StateRepository{querier: mock, logger: newTestLogger()}

	state := testState()
	payload, err := json.Marshal(state)
	require.NoError(t, err)

	query := `
		INSERT INTO engine_state \(id, state, saved_at\)
		VALUES \(1, \$1, NOW\(\)\)
		ON CONFLICT \(id\) DO UPDATE SET state = EXCLUDED\.state, saved_at = EXCLUDED\.saved_at
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(payload).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Save(ctx, state)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(payload).
			WillReturnError(expectedErr)

		err := repo.Save(ctx, state)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save engine state")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStateRepository_Load(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StateRepository{querier: mock, logger: newTestLogger()}

	query := `
		SELECT state
		FROM engine_state
		WHERE id = 1
	`

	t.Run("success", func(t *testing.T) {
		state := testState()
		payload, err := json.Marshal(state)
		require.NoError(t, err)

		mock.ExpectQuery(query).
			WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(payload))

		loaded, ok, err := repo.Load(ctx)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, state, loaded)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no snapshot yet", func(t *testing.T) {
		mock.ExpectQuery(query).WillReturnError(pgx.ErrNoRows)

		loaded, ok, err := repo.Load(ctx)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, loaded.Bank)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt payload", func(t *testing.T) {
		mock.ExpectQuery(query).
			WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow([]byte("not json")))

		_, _, err := repo.Load(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal engine state")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStateRepository_Clear(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StateRepository{querier: mock, logger: newTestLogger()}

	query := `
		DELETE FROM engine_state
		WHERE id = 1
	`

	mock.ExpectExec(query).WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = repo.Clear(ctx)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
