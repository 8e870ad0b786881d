package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bank-reconciliation/internal/domain/match"
	"github.com/bank-reconciliation/internal/domain/transaction"
)

func TestBuild(t *testing.T) {
	bank := []transaction.Transaction{
		{ID: "b1", Amount: decimal.RequireFromString("1500.00"), Origin: transaction.OriginBank},
		{ID: "b2", Amount: decimal.RequireFromString("-100.50"), Origin: transaction.OriginBank},
	}
	accounting := []transaction.Transaction{
		{ID: "a1", Amount: decimal.RequireFromString("300"), Origin: transaction.OriginAccounting},
	}
	matched := []match.MatchedPair{
		{BankTransactionID: "b9", AccountingTransactionID: "a9"},
	}

	r := Build(bank, accounting, matched)

	assert.Equal(t, 2, r.Bank.PendingCount)
	assert.True(t, r.Bank.PendingTotal.Equal(decimal.RequireFromString("1399.50")))
	assert.Equal(t, 1, r.Accounting.PendingCount)
	assert.True(t, r.Accounting.PendingTotal.Equal(decimal.RequireFromString("300")))
	assert.Equal(t, 1, r.MatchedCount)
	assert.Len(t, r.PendingBank, 2)
	assert.Len(t, r.MatchedPairs, 1)
	assert.False(t, r.GeneratedAt.IsZero())
}

func TestBuild_EmptyState(t *testing.T) {
	r := Build(nil, nil, nil)
	assert.Equal(t, 0, r.Bank.PendingCount)
	assert.True(t, r.Bank.PendingTotal.Equal(decimal.Zero))
	assert.Equal(t, 0, r.MatchedCount)
}
