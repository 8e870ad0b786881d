package match

import (
	"fmt"

	"github.com/bank-reconciliation/internal/domain/transaction"
)

// ErrNotFound indicates a referenced transaction ID is not in the expected
// pending pool: it was already matched, never existed, or belongs to the
// other side. Raised before any mutation.
type ErrNotFound struct {
	Origin transaction.Origin
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("transaction not found in %s pending pool: %s", e.Origin, e.ID)
}

// Is implements the errors.Is interface for ErrNotFound. A target with an
// empty ID matches any ErrNotFound for the same (or empty) origin.
func (e ErrNotFound) Is(target error) bool {
	t, ok := target.(ErrNotFound)
	if !ok {
		return false
	}
	if t.ID != "" && t.ID != e.ID {
		return false
	}
	return t.Origin == "" || t.Origin == e.Origin
}

// ErrInvalidSelection indicates the request shape violates the scenario's
// preconditions (empty list, repeated IDs). Raised before existence checks.
type ErrInvalidSelection struct {
	Reason string
}

func (e ErrInvalidSelection) Error() string {
	return "invalid selection: " + e.Reason
}

// Is implements the errors.Is interface for ErrInvalidSelection. A target
// with an empty Reason matches any ErrInvalidSelection.
func (e ErrInvalidSelection) Is(target error) bool {
	t, ok := target.(ErrInvalidSelection)
	if !ok {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// ErrInternalInconsistency indicates a violated engine invariant, e.g. an ID
// observed in two pools at once. The engine fails loudly on detection instead
// of repairing state silently.
type ErrInternalInconsistency struct {
	ID     string
	Detail string
}

func (e ErrInternalInconsistency) Error() string {
	return fmt.Sprintf("internal inconsistency for transaction %s: %s", e.ID, e.Detail)
}

// Is implements the errors.Is interface for ErrInternalInconsistency
func (e ErrInternalInconsistency) Is(target error) bool {
	_, ok := target.(ErrInternalInconsistency)
	return ok
}
