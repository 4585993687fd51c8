package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/jqlim/expense-bot/internal/common"
	"github.com/jqlim/expense-bot/internal/model"
	"github.com/jqlim/expense-bot/internal/service"
)

// Client talks to the ledger spreadsheet. It implements both the
// ExpenseStore and DefinitionsSource interfaces.
type Client struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config

	cache definitionsCache
}

// NewClient creates a ledger client authenticated with a service account.
func NewClient(ctx context.Context, config Config, logger *slog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// createSheetsService creates a Google Sheets API service from the service
// account key file.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	jsonKey, err := os.ReadFile(config.ServiceAccountPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account key file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account key: %w", err)
	}

	var tokenSource oauth2.TokenSource = jwtConfig.TokenSource(ctx)
	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// AddExpense implements the service.ExpenseStore interface. The row lands on
// the month tab named after the expense date ("Jan 06"); the tab must already
// exist in the spreadsheet.
func (c *Client) AddExpense(ctx context.Context, month, isoDate, payee, category string, amount decimal.Decimal, paymentMethod, person string) error {
	row := expenseRow(isoDate, payee, category, amount, paymentMethod, person)
	valueRange := &sheets.ValueRange{Values: [][]any{row}}
	appendRange := fmt.Sprintf("'%s'!A:G", month)

	err := common.WithRetry(ctx, func() error {
		_, apiErr := c.service.Spreadsheets.Values.
			Append(c.config.SpreadsheetID, appendRange, valueRange).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return apiErr
	}, c.retryOptions())
	if err != nil {
		return fmt.Errorf("failed to append expense to %q: %w", month, err)
	}

	c.logger.Info("expense appended",
		"month", month,
		"payee", payee,
		"category", category,
		"amount", amount.String())

	return nil
}

// expenseRow builds one ledger row. Column A is left blank for the sheet's
// own running-total formula; the date is stored in the sheet's short form.
func expenseRow(isoDate, payee, category string, amount decimal.Decimal, paymentMethod, person string) []any {
	cost, _ := amount.Float64()
	return []any{
		"",
		model.SheetDate(isoDate),
		payee,
		category,
		cost,
		paymentMethod,
		person,
	}
}

func (c *Client) retryOptions() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  c.config.RetryAttempts,
		InitialDelay: c.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}
