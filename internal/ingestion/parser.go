// Package ingestion turns uploaded statement files into transactions and
// admits them to the engine. Which pool a file feeds is decided by an
// explicit format-to-origin mapping from configuration, never inferred from
// file names or free text.
package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bank-reconciliation/internal/domain/transaction"
)

// CSVFormat describes how to read one side's statement file. Column values
// are zero-based indexes; AmountColumn and the Debit/Credit pair are mutually
// exclusive (set the unused ones to -1).
type CSVFormat struct {
	Name              string
	HasHeader         bool
	Delimiter         rune // 0 means comma
	DateColumn        int
	DescriptionColumn int
	AmountColumn      int
	DebitColumn       int
	CreditColumn      int
	// ExcludeDescriptions drops rows whose description matches one of these
	// values (case-insensitive), e.g. running-balance summary rows.
	ExcludeDescriptions []string
}

// Validate checks that the format references a usable set of columns
func (f CSVFormat) Validate() error {
	if f.DateColumn < 0 {
		return fmt.Errorf("format %s: date column is required", f.Name)
	}
	if f.AmountColumn < 0 && (f.DebitColumn < 0 || f.CreditColumn < 0) {
		return fmt.Errorf("format %s: either an amount column or a debit/credit column pair is required", f.Name)
	}
	if f.AmountColumn >= 0 && (f.DebitColumn >= 0 || f.CreditColumn >= 0) {
		return fmt.Errorf("format %s: amount column and debit/credit columns are mutually exclusive", f.Name)
	}
	return nil
}

// minColumns is the smallest row width that carries every referenced column
func (f CSVFormat) minColumns() int {
	max := f.DateColumn
	for _, c := range []int{f.DescriptionColumn, f.AmountColumn, f.DebitColumn, f.CreditColumn} {
		if c > max {
			max = c
		}
	}
	return max + 1
}

// ParseStatement reads a statement file and produces transactions for the
// given origin, with IDs minted per row. Rows without a parsable amount are
// skipped; rows without a parsable date are kept with a nil date. Returns an
// error only when the file itself is unreadable or yields no usable rows.
func ParseStatement(r io.Reader, origin transaction.Origin, format CSVFormat) ([]transaction.Transaction, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.Comma = ','
	if format.Delimiter != 0 {
		reader.Comma = format.Delimiter
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		txs      []transaction.Transaction
		rowsSeen int
	)
	min := format.minColumns()

	for line := 0; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s row %d: %w", format.Name, line+1, err)
		}
		if format.HasHeader && line == 0 {
			continue
		}
		if len(row) < min {
			continue // blank or truncated line
		}
		rowsSeen++

		description := ""
		if format.DescriptionColumn >= 0 {
			description = strings.TrimSpace(row[format.DescriptionColumn])
		}
		if excluded(description, format.ExcludeDescriptions) {
			continue
		}

		amount, ok := rowAmount(row, format)
		if !ok {
			continue
		}

		txs = append(txs, transaction.New(origin, parseDate(row[format.DateColumn]), description, amount))
	}

	if rowsSeen > 0 && len(txs) == 0 {
		return nil, fmt.Errorf("%s file contained %d rows but none were parsable", format.Name, rowsSeen)
	}
	return txs, nil
}

func rowAmount(row []string, format CSVFormat) (decimal.Decimal, bool) {
	if format.AmountColumn >= 0 {
		return parseAmount(row[format.AmountColumn])
	}

	// Ledger-style files carry separate debit and credit columns; the signed
	// movement is debit minus credit. An empty cell counts as zero, but a row
	// with both cells empty carries no movement at all.
	debitRaw := strings.TrimSpace(row[format.DebitColumn])
	creditRaw := strings.TrimSpace(row[format.CreditColumn])
	if debitRaw == "" && creditRaw == "" {
		return decimal.Decimal{}, false
	}

	debit := decimal.Zero
	if debitRaw != "" {
		d, ok := parseAmount(debitRaw)
		if !ok {
			return decimal.Decimal{}, false
		}
		debit = d
	}
	credit := decimal.Zero
	if creditRaw != "" {
		c, ok := parseAmount(creditRaw)
		if !ok {
			return decimal.Decimal{}, false
		}
		credit = c
	}
	return debit.Sub(credit), true
}

// parseAmount converts a monetary cell to a decimal, tolerating a currency
// sign and thousands separators ("$1,234.56" -> 1234.56).
func parseAmount(s string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.TrimPrefix(cleaned, "-$")
	if strings.HasPrefix(strings.TrimSpace(s), "-") && !strings.HasPrefix(cleaned, "-") {
		cleaned = "-" + cleaned
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// dateLayouts are tried in order; day-first layouts come before month-first
// because the source statements use them.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006/01/02",
	"02012006",
	"20060102",
}

// parseDate attempts the known layouts and returns nil when none fits.
// An unparsable date is a valid state for a transaction, not an error.
func parseDate(s string) *time.Time {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func excluded(description string, exclusions []string) bool {
	for _, ex := range exclusions {
		if strings.EqualFold(description, strings.TrimSpace(ex)) {
			return true
		}
	}
	return false
}
