// Package reconciliation implements the matching engine and its
// pool-consistency protocol: two pending pools, the matched-pair ledger, and
// the four matching scenarios executed atomically against them.
package reconciliation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bank-reconciliation/internal/domain/match"
	"github.com/bank-reconciliation/internal/domain/transaction"
)

// MatchingPolicy tunes the automatic pass. The zero value is the default
// policy: exact amount equality and no date constraint.
type MatchingPolicy struct {
	// AmountTolerance is the maximum absolute difference between two amounts
	// for them to be considered equal. Zero means exact equality.
	AmountTolerance decimal.Decimal
	// DateWindowDays constrains candidates to dates within the given number
	// of days of each other. Zero disables the constraint. When enabled,
	// transactions without a parsed date never auto-match.
	DateWindowDays int
}

// SkippedAdmission reports one transaction rejected during admission.
// Duplicate skips are per-item and never abort the batch.
type SkippedAdmission struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// AdmitResult is the outcome of an admission batch
type AdmitResult struct {
	Admitted []transaction.Transaction `json:"admitted"`
	Skipped  []SkippedAdmission        `json:"skipped,omitempty"`
}

// State is the full engine state: both pools plus the ledger. The three parts
// are always serialized and restored together so the partition invariant
// (every admitted ID lives in exactly one place) survives a round trip.
type State struct {
	Bank       []transaction.Transaction `json:"bank"`
	Accounting []transaction.Transaction `json:"accounting"`
	Matched    []match.MatchedPair       `json:"matched"`
}

// Engine owns the two pending pools and the matched-pair ledger. It is the
// single serialization point for every mutation: admissions and matches take
// the write lock, so "check existence then remove" is atomic and two requests
// can never both consume the same ID. Snapshots take the read lock and return
// copies, so exports and uploads never stall matching.
type Engine struct {
	mu         sync.RWMutex
	bank       *Pool
	accounting *Pool
	ledger     *Ledger
	policy     MatchingPolicy
	logger     *slog.Logger
}

// NewEngine creates an engine with empty pools and ledger
func NewEngine(logger *slog.Logger, policy MatchingPolicy) *Engine {
	return &Engine{
		bank:       NewPool(transaction.OriginBank),
		accounting: NewPool(transaction.OriginAccounting),
		ledger:     NewLedger(),
		policy:     policy,
		logger:     logger,
	}
}

// Admit appends new transactions to their side's pending pool. IDs already
// known to the engine (either pool or consumed by the ledger) are skipped and
// reported per item; admission never silently overwrites. Transactions
// arriving without an ID get one minted here, which makes admission the
// single place IDs are assigned.
func (e *Engine) Admit(txs []transaction.Transaction) (AdmitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result AdmitResult
	seen := make(map[string]struct{}, len(txs))

	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = transaction.NewID(tx.Origin)
		}
		if err := tx.Validate(); err != nil {
			result.Skipped = append(result.Skipped, SkippedAdmission{ID: tx.ID, Reason: err.Error()})
			continue
		}
		if _, dup := seen[tx.ID]; dup {
			result.Skipped = append(result.Skipped, SkippedAdmission{ID: tx.ID, Reason: "duplicate ID within batch"})
			continue
		}
		if reason := e.idKnown(tx.ID); reason != "" {
			result.Skipped = append(result.Skipped, SkippedAdmission{ID: tx.ID, Reason: reason})
			continue
		}

		pool := e.poolFor(tx.Origin)
		if err := pool.Append(tx); err != nil {
			// Unreachable after idKnown; fail loudly rather than repair.
			return AdmitResult{}, err
		}
		seen[tx.ID] = struct{}{}
		result.Admitted = append(result.Admitted, tx)
	}

	e.logger.Info("admission batch processed",
		"admitted", len(result.Admitted),
		"skipped", len(result.Skipped),
		"bank_pending", e.bank.Len(),
		"accounting_pending", e.accounting.Len(),
	)
	return result, nil
}

// MatchOneToOne pairs one bank transaction with one accounting transaction.
// Both must be pending; on success both are removed and one pair is appended.
func (e *Engine) MatchOneToOne(bankID, accountingID string) (match.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.bank.Contains(bankID) {
		return match.Result{}, match.ErrNotFound{Origin: transaction.OriginBank, ID: bankID}
	}
	if !e.accounting.Contains(accountingID) {
		return match.Result{}, match.ErrNotFound{Origin: transaction.OriginAccounting, ID: accountingID}
	}

	pair := match.MatchedPair{
		BankTransactionID:       bankID,
		AccountingTransactionID: accountingID,
		MatchedAt:               time.Now().UTC(),
	}
	if err := e.commit([]string{bankID}, []string{accountingID}, []match.MatchedPair{pair}); err != nil {
		return match.Result{}, err
	}

	e.logger.Info("manual match committed", "scenario", match.ScenarioOneToOne,
		"bank_id", bankID, "accounting_id", accountingID)
	return match.Result{Scenario: match.ScenarioOneToOne, Pairs: []match.MatchedPair{pair}}, nil
}

// MatchOneBankToManyAccounting pairs one bank transaction against several
// accounting transactions (fan-out, e.g. a lump payment covering several
// invoices). One pair is appended per accounting ID, all sharing the bank ID.
func (e *Engine) MatchOneBankToManyAccounting(bankID string, accountingIDs []string) (match.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateSelection(accountingIDs, "accounting"); err != nil {
		return match.Result{}, err
	}
	if !e.bank.Contains(bankID) {
		return match.Result{}, match.ErrNotFound{Origin: transaction.OriginBank, ID: bankID}
	}
	for _, id := range accountingIDs {
		if !e.accounting.Contains(id) {
			return match.Result{}, match.ErrNotFound{Origin: transaction.OriginAccounting, ID: id}
		}
	}

	now := time.Now().UTC()
	pairs := make([]match.MatchedPair, 0, len(accountingIDs))
	for _, id := range accountingIDs {
		pairs = append(pairs, match.MatchedPair{
			BankTransactionID:       bankID,
			AccountingTransactionID: id,
			MatchedAt:               now,
		})
	}
	if err := e.commit([]string{bankID}, accountingIDs, pairs); err != nil {
		return match.Result{}, err
	}

	e.logger.Info("manual match committed", "scenario", match.ScenarioOneToMany,
		"bank_id", bankID, "accounting_ids", len(accountingIDs))
	return match.Result{Scenario: match.ScenarioOneToMany, Pairs: pairs}, nil
}

// MatchManyBankToOneAccounting pairs several bank transactions against one
// accounting transaction (fan-in). Symmetric to MatchOneBankToManyAccounting.
func (e *Engine) MatchManyBankToOneAccounting(accountingID string, bankIDs []string) (match.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateSelection(bankIDs, "bank"); err != nil {
		return match.Result{}, err
	}
	if !e.accounting.Contains(accountingID) {
		return match.Result{}, match.ErrNotFound{Origin: transaction.OriginAccounting, ID: accountingID}
	}
	for _, id := range bankIDs {
		if !e.bank.Contains(id) {
			return match.Result{}, match.ErrNotFound{Origin: transaction.OriginBank, ID: id}
		}
	}

	now := time.Now().UTC()
	pairs := make([]match.MatchedPair, 0, len(bankIDs))
	for _, id := range bankIDs {
		pairs = append(pairs, match.MatchedPair{
			BankTransactionID:       id,
			AccountingTransactionID: accountingID,
			MatchedAt:               now,
		})
	}
	if err := e.commit(bankIDs, []string{accountingID}, pairs); err != nil {
		return match.Result{}, err
	}

	e.logger.Info("manual match committed", "scenario", match.ScenarioManyToOne,
		"accounting_id", accountingID, "bank_ids", len(bankIDs))
	return match.Result{Scenario: match.ScenarioManyToOne, Pairs: pairs}, nil
}

// MatchAuto runs a single deterministic pass over the bank pool. For each
// bank transaction, in insertion order, the accounting pool is scanned in
// insertion order and the first unconsumed candidate within the amount
// tolerance (and date window, when configured) wins. Ties therefore go to
// the earliest admitted candidate; this is a deliberate, documented policy
// that keeps two runs on identical input byte-identical. Bank transactions
// with no candidate stay pending, which is not an error.
func (e *Engine) MatchAuto() (match.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bankTxs := e.bank.Snapshot()
	accTxs := e.accounting.Snapshot()
	consumed := make(map[string]struct{}, len(accTxs))
	now := time.Now().UTC()

	pairs := make([]match.MatchedPair, 0)
	for _, b := range bankTxs {
		for _, a := range accTxs {
			if _, taken := consumed[a.ID]; taken {
				continue
			}
			if !e.candidates(b, a) {
				continue
			}

			pair := match.MatchedPair{
				BankTransactionID:       b.ID,
				AccountingTransactionID: a.ID,
				MatchedAt:               now,
			}
			if err := e.commit([]string{b.ID}, []string{a.ID}, []match.MatchedPair{pair}); err != nil {
				return match.Result{}, err
			}
			consumed[a.ID] = struct{}{}
			pairs = append(pairs, pair)
			break
		}
	}

	e.logger.Info("auto-match pass completed",
		"pairs_created", len(pairs),
		"bank_pending", e.bank.Len(),
		"accounting_pending", e.accounting.Len(),
	)
	return match.Result{Scenario: match.ScenarioAuto, Pairs: pairs}, nil
}

// PendingSnapshot returns an insertion-ordered copy of one side's pool
func (e *Engine) PendingSnapshot(origin transaction.Origin) ([]transaction.Transaction, error) {
	if _, err := transaction.ParseOrigin(string(origin)); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.poolFor(origin).Snapshot(), nil
}

// MatchedPairs returns the full ledger in append order
func (e *Engine) MatchedPairs() []match.MatchedPair {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.All()
}

// State returns a deep copy of pools and ledger, taken under one read lock so
// the three parts are mutually consistent.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return State{
		Bank:       e.bank.Snapshot(),
		Accounting: e.accounting.Snapshot(),
		Matched:    e.ledger.All(),
	}
}

// Restore replaces the engine state with a previously saved one. The state is
// validated against the partition invariant before anything is replaced; a
// corrupt snapshot leaves the engine untouched.
func (e *Engine) Restore(s State) error {
	bank := NewPool(transaction.OriginBank)
	accounting := NewPool(transaction.OriginAccounting)
	ledger := NewLedger()
	ledger.Append(s.Matched...)

	for _, tx := range s.Bank {
		if ledger.ConsumedBank(tx.ID) {
			return match.ErrInternalInconsistency{ID: tx.ID, Detail: "pending in bank pool and consumed by ledger"}
		}
		if err := bank.Append(tx); err != nil {
			return err
		}
	}
	for _, tx := range s.Accounting {
		if ledger.ConsumedAccounting(tx.ID) {
			return match.ErrInternalInconsistency{ID: tx.ID, Detail: "pending in accounting pool and consumed by ledger"}
		}
		if bank.Contains(tx.ID) {
			return match.ErrInternalInconsistency{ID: tx.ID, Detail: "present in both pools"}
		}
		if err := accounting.Append(tx); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.bank = bank
	e.accounting = accounting
	e.ledger = ledger
	e.logger.Info("engine state restored",
		"bank_pending", bank.Len(),
		"accounting_pending", accounting.Len(),
		"matched_pairs", ledger.Len(),
	)
	return nil
}

// Clear resets pools and ledger to empty
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bank = NewPool(transaction.OriginBank)
	e.accounting = NewPool(transaction.OriginAccounting)
	e.ledger = NewLedger()
	e.logger.Warn("engine state cleared")
}

// commit is the single atomic update primitive: remove from both pools, then
// append to the ledger. Callers validated existence under the same lock, so
// removal cannot fail here; if it does the engine state is suspect and the
// error surfaces as an internal inconsistency.
func (e *Engine) commit(bankIDs, accountingIDs []string, pairs []match.MatchedPair) error {
	if err := e.bank.Remove(bankIDs); err != nil {
		return match.ErrInternalInconsistency{ID: bankIDs[0], Detail: "validated bank ID vanished before removal: " + err.Error()}
	}
	if err := e.accounting.Remove(accountingIDs); err != nil {
		return match.ErrInternalInconsistency{ID: accountingIDs[0], Detail: "validated accounting ID vanished before removal: " + err.Error()}
	}
	e.ledger.Append(pairs...)
	return nil
}

// candidates reports whether a bank and accounting transaction satisfy the
// matching policy.
func (e *Engine) candidates(b, a transaction.Transaction) bool {
	diff := b.Amount.Sub(a.Amount).Abs()
	if diff.GreaterThan(e.policy.AmountTolerance) {
		return false
	}
	if e.policy.DateWindowDays > 0 {
		if b.Date == nil || a.Date == nil {
			return false
		}
		days := b.Date.Sub(*a.Date).Hours() / 24
		if days < 0 {
			days = -days
		}
		if days > float64(e.policy.DateWindowDays) {
			return false
		}
	}
	return true
}

// idKnown returns a human-readable reason when the ID already lives somewhere
// in the engine, or "" when it is free.
func (e *Engine) idKnown(id string) string {
	switch {
	case e.bank.Contains(id):
		return "already pending in bank pool"
	case e.accounting.Contains(id):
		return "already pending in accounting pool"
	case e.ledger.ConsumedBank(id) || e.ledger.ConsumedAccounting(id):
		return "already consumed by a matched pair"
	}
	return ""
}

func (e *Engine) poolFor(origin transaction.Origin) *Pool {
	if origin == transaction.OriginAccounting {
		return e.accounting
	}
	return e.bank
}

func validateSelection(ids []string, side string) error {
	if len(ids) == 0 {
		return match.ErrInvalidSelection{Reason: "no " + side + " transactions selected"}
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return match.ErrInvalidSelection{Reason: "empty " + side + " transaction ID in selection"}
		}
		if _, dup := seen[id]; dup {
			return match.ErrInvalidSelection{Reason: "repeated " + side + " transaction ID: " + id}
		}
		seen[id] = struct{}{}
	}
	return nil
}
