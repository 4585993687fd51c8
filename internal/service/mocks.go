package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jqlim/expense-bot/internal/model"
)

// MockDefinitionsSource is a DefinitionsSource for testing.
type MockDefinitionsSource struct {
	Defs          model.Definitions
	Err           error
	CallCount     int
	Invalidations int
	mu            sync.Mutex
}

// InvalidateDefinitions records a cache invalidation request.
func (m *MockDefinitionsSource) InvalidateDefinitions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidations++
}

// Definitions implements the DefinitionsSource interface.
func (m *MockDefinitionsSource) Definitions(_ context.Context) (model.Definitions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount++
	if m.Err != nil {
		return model.Definitions{}, m.Err
	}
	return m.Defs, nil
}

// AddExpenseCall records the arguments of a single AddExpense invocation.
type AddExpenseCall struct {
	Month         string
	ISODate       string
	Payee         string
	Category      string
	PaymentMethod string
	Person        string
	Amount        decimal.Decimal
}

// MockExpenseStore is an ExpenseStore for testing.
type MockExpenseStore struct {
	Err   error
	Calls []AddExpenseCall
	mu    sync.Mutex
}

// AddExpense implements the ExpenseStore interface.
func (m *MockExpenseStore) AddExpense(_ context.Context, month, isoDate, payee, category string, amount decimal.Decimal, paymentMethod, person string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, AddExpenseCall{
		Month:         month,
		ISODate:       isoDate,
		Payee:         payee,
		Category:      category,
		Amount:        amount,
		PaymentMethod: paymentMethod,
		Person:        person,
	})
	return m.Err
}

// LastCall returns the most recent AddExpense call, or nil when none happened.
func (m *MockExpenseStore) LastCall() *AddExpenseCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	call := m.Calls[len(m.Calls)-1]
	return &call
}

// CallCount returns the number of AddExpense calls so far.
func (m *MockExpenseStore) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockUserDirectory is a UserDirectory for testing, keyed by telegram ID.
type MockUserDirectory struct {
	Users map[string]DirectoryUser
	Err   error
}

// LookupByTelegramID implements the UserDirectory interface.
func (m *MockUserDirectory) LookupByTelegramID(_ context.Context, telegramID string) (*DirectoryUser, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if u, ok := m.Users[telegramID]; ok {
		return &u, nil
	}
	return nil, nil
}

// MockNotifier is a Notifier for testing.
type MockNotifier struct {
	Err           error
	Notifications []ExpenseNotification
	mu            sync.Mutex
}

// NotifyExpense implements the Notifier interface.
func (m *MockNotifier) NotifyExpense(_ context.Context, n ExpenseNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications = append(m.Notifications, n)
	return m.Err
}
