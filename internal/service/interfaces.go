// Package service defines the contracts between the conversational core and
// its external collaborators.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jqlim/expense-bot/internal/model"
)

// DefinitionsSource supplies the reference lists used to validate extracted
// fields. Implementations may serve a cached value within their configured
// freshness window; callers must tolerate either.
type DefinitionsSource interface {
	Definitions(ctx context.Context) (model.Definitions, error)
}

// ExpenseStore is the persistence boundary for the ledger.
type ExpenseStore interface {
	// AddExpense appends one expense row to the month tab of the ledger.
	AddExpense(ctx context.Context, month, isoDate, payee, category string, amount decimal.Decimal, paymentMethod, person string) error
}

// DirectoryUser is a user directory entry.
type DirectoryUser struct {
	TelegramID string
	FirstName  string
	LastName   string
}

// UserDirectory resolves external chat identities to known users.
type UserDirectory interface {
	// LookupByTelegramID returns the user for the given identity token, or
	// nil when no such user exists.
	LookupByTelegramID(ctx context.Context, telegramID string) (*DirectoryUser, error)
}

// ExpenseNotification describes a recorded expense for outbound notification.
type ExpenseNotification struct {
	Date          string
	Payee         string
	Category      string
	Currency      string
	PaymentMethod string
	Person        string
	Amount        decimal.Decimal
}

// Notifier announces recorded expenses to an external channel. Failures are
// the implementation's to log; callers treat notification as best-effort.
type Notifier interface {
	NotifyExpense(ctx context.Context, n ExpenseNotification) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
