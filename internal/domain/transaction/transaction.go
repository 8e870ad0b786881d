// Package transaction defines the ledger entry model shared by both
// reconciliation sides. A transaction is immutable once admitted: its ID,
// origin and amount never change, only its location (pending pool or
// matched ledger) does.
package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidOrigin = errors.New("origin must be either 'bank' or 'accounting'")

// Origin identifies which source ledger a transaction was produced by.
// It is fixed at creation and never mutated.
type Origin string

const (
	OriginBank       Origin = "bank"
	OriginAccounting Origin = "accounting"
)

// ParseOrigin converts a string into an Origin, rejecting unknown values
func ParseOrigin(s string) (Origin, error) {
	switch Origin(s) {
	case OriginBank, OriginAccounting:
		return Origin(s), nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidOrigin, s)
	}
}

// Transaction represents a single movement from one of the two source ledgers.
// Amount keeps the source's exact precision; Date is nil when the source date
// could not be parsed, which is a valid state rather than an error.
type Transaction struct {
	ID          string          `json:"id" bson:"id"`
	Date        *time.Time      `json:"date,omitempty" bson:"date,omitempty"`
	Description string          `json:"description" bson:"description"`
	Amount      decimal.Decimal `json:"amount" bson:"amount"`
	Origin      Origin          `json:"origin" bson:"origin"`
}

// New creates a transaction with a freshly minted ID for the given origin
func New(origin Origin, date *time.Time, description string, amount decimal.Decimal) Transaction {
	return Transaction{
		ID:          NewID(origin),
		Date:        date,
		Description: description,
		Amount:      amount,
		Origin:      origin,
	}
}

// NewID mints a unique transaction ID. The origin prefix is cosmetic (useful
// in logs and reports); uniqueness comes from the UUID part.
func NewID(origin Origin) string {
	prefix := "b"
	if origin == OriginAccounting {
		prefix = "a"
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}

// Validate checks the fields that admission depends on
func (t Transaction) Validate() error {
	if t.ID == "" {
		return errors.New("transaction ID cannot be empty")
	}
	if _, err := ParseOrigin(string(t.Origin)); err != nil {
		return err
	}
	return nil
}
