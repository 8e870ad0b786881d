// Package match defines the matched-pair model, the tagged result type
// returned by every matching scenario, and the engine's error taxonomy.
package match

import (
	"time"
)

// MatchedPair records the association between one bank transaction and one
// accounting transaction. Fan-out and fan-in matches produce one pair per
// counterpart, so the same bank ID (or accounting ID) may appear in several
// pairs created by a single request.
type MatchedPair struct {
	BankTransactionID       string    `json:"bank_transaction_id" bson:"bank_transaction_id"`
	AccountingTransactionID string    `json:"accounting_transaction_id" bson:"accounting_transaction_id"`
	MatchedAt               time.Time `json:"matched_at" bson:"matched_at"`
}

// Scenario discriminates the matching operation that produced a Result
type Scenario string

const (
	ScenarioOneToOne  Scenario = "ONE_TO_ONE"
	ScenarioOneToMany Scenario = "ONE_TO_MANY"
	ScenarioManyToOne Scenario = "MANY_TO_ONE"
	ScenarioAuto      Scenario = "AUTO"
)

// Result is the outcome of a successful match operation. Pairs holds only the
// pairs created by this call, in the order they were committed to the ledger.
// An auto pass that found nothing returns an empty Pairs slice, not an error.
type Result struct {
	Scenario Scenario      `json:"scenario"`
	Pairs    []MatchedPair `json:"pairs"`
}
