// Package model defines the core domain types shared across the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unknown is the sentinel substituted for any category or payment method
// that is not present in the Definitions' valid sets.
const Unknown = "UNKNOWN"

// DefaultCurrency is assumed whenever the input does not state a currency.
const DefaultCurrency = "SGD"

// FallbackPerson is recorded when the sender cannot be resolved in the
// user directory.
const FallbackPerson = "bot"

// ExpenseCandidate is the in-progress expense record a conversation is
// building. It is mutated field-by-field through the edit flow or wholesale
// through a correction patch, and persisted only on submit.
type ExpenseCandidate struct {
	Date          string          `json:"date"`
	Payee         string          `json:"payee"`
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
	Category      string          `json:"category"`
	PaymentMethod string          `json:"payment_method"`
	Person        string          `json:"person,omitempty"`
}

// EditableFields lists the candidate fields that can be overwritten through
// the inline edit flow, in presentation order.
var EditableFields = []string{"date", "payee", "currency", "total", "category", "payment_method"}

// IsEditableField reports whether name is one of the fields the edit flow
// may overwrite.
func IsEditableField(name string) bool {
	for _, f := range EditableFields {
		if f == name {
			return true
		}
	}
	return false
}

// RecordedExpense is the validated expense returned on a successful parse.
type RecordedExpense struct {
	Date          string          `json:"date"`
	Payee         string          `json:"payee"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
}

// ParsedExpense is the discriminated result of the extraction pipeline:
// either Expense is set and OK is true, or Err carries the failure reason.
// Never both.
type ParsedExpense struct {
	Expense *RecordedExpense
	Err     string
	OK      bool
}

// Success wraps a recorded expense in an ok result.
func Success(e RecordedExpense) ParsedExpense {
	return ParsedExpense{OK: true, Expense: &e}
}

// Failure wraps a reason in a failed result.
func Failure(reason string) ParsedExpense {
	return ParsedExpense{OK: false, Err: reason}
}

// FXRate is a single exchange rate against the base currency.
type FXRate struct {
	Currency string
	Rate     decimal.Decimal
}

// Definitions holds the reference lists all extracted values are validated
// against. Categories, Cards and Persons are sorted; FX preserves sheet order.
type Definitions struct {
	Categories []string
	Cards      []string
	Persons    []string
	FX         []FXRate
}

// HasCategory reports whether name is a known category.
func (d Definitions) HasCategory(name string) bool {
	return contains(d.Categories, name)
}

// HasCard reports whether name is a known payment method.
func (d Definitions) HasCard(name string) bool {
	return contains(d.Cards, name)
}

func contains(set []string, name string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}

// NormalizeCategory returns name when it is a known category, Unknown otherwise.
func (d Definitions) NormalizeCategory(name string) string {
	if d.HasCategory(name) {
		return name
	}
	return Unknown
}

// NormalizeCard returns name when it is a known payment method, Unknown otherwise.
func (d Definitions) NormalizeCard(name string) string {
	if d.HasCard(name) {
		return name
	}
	return Unknown
}

// acceptedDateLayouts are the shapes the pipeline accepts from providers and
// from manual field edits.
var acceptedDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CanonicalDate converts raw into a canonical RFC 3339 timestamp. A missing
// or unparseable value resolves to now.
func CanonicalDate(raw string, now time.Time) string {
	if raw != "" {
		for _, layout := range acceptedDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC().Format(time.RFC3339)
			}
		}
	}
	return now.UTC().Format(time.RFC3339)
}

// MonthLabel derives the ledger tab name ("Jan 06") for a canonical date.
func MonthLabel(isoDate string) string {
	t, err := time.Parse(time.RFC3339, isoDate)
	if err != nil {
		t = time.Now().UTC()
	}
	return t.Format("Jan 06")
}

// SheetDate formats a canonical date the way ledger rows store it (M/D/YY).
func SheetDate(isoDate string) string {
	t, err := time.Parse(time.RFC3339, isoDate)
	if err != nil {
		t = time.Now().UTC()
	}
	return t.Format("1/2/06")
}
