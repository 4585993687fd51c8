// Package nlp turns free-text or receipt input into structured expense rows
// using an LLM provider, the definitions sheet, and the expense ledger.
package nlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jqlim/expense-bot/internal/llm"
	"github.com/jqlim/expense-bot/internal/model"
	"github.com/jqlim/expense-bot/internal/service"
)

// User-facing failure reasons surfaced through ParsedExpense.Err.
const (
	msgDefinitionsFailed = "Failed to load definitions from sheet"
	msgEmptyResponse     = "Failed to parse expense with AI"
	msgInvalidFormat     = "Invalid AI response format"
	msgMissingFields     = "Could not extract amount and/or payee from input"
	msgAppendFailed      = "Failed to add expense"
	msgInternalError     = "Internal server error"
)

var (
	errDefinitions   = errors.New(msgDefinitionsFailed)
	errEmptyResponse = errors.New(msgEmptyResponse)
	errInvalidFormat = errors.New(msgInvalidFormat)
	errMissingFields = errors.New(msgMissingFields)
)

// providerReportedError carries the failure explanation the model itself
// returned in its JSON answer. The reason is shown to the user as-is.
type providerReportedError struct {
	reason string
}

func (e *providerReportedError) Error() string { return e.reason }

// Parser extracts expenses from user input and records them in the ledger.
type Parser struct {
	client    llm.Client
	defs      service.DefinitionsSource
	store     service.ExpenseStore
	directory service.UserDirectory
	notifier  service.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewParser creates a parser. The notifier may be nil, in which case recorded
// expenses are not announced anywhere.
func NewParser(client llm.Client, defs service.DefinitionsSource, store service.ExpenseStore, directory service.UserDirectory, notifier service.Notifier, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		client:    client,
		defs:      defs,
		store:     store,
		directory: directory,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// aiExpense is the JSON shape providers answer with. Text extraction uses
// "amount" while receipt extraction uses "total"; both are accepted.
type aiExpense struct {
	Amount        *float64 `json:"amount"`
	Total         *float64 `json:"total"`
	Payee         string   `json:"payee"`
	Category      string   `json:"category"`
	PaymentMethod string   `json:"payment_method"`
	Currency      string   `json:"currency"`
	Date          *string  `json:"date"`
	Error         *string  `json:"error"`
}

// Extract parses free text into a candidate without persisting it.
func (p *Parser) Extract(ctx context.Context, text string) (*model.ExpenseCandidate, error) {
	defs, err := p.defs.Definitions(ctx)
	if err != nil {
		p.logger.Error("failed to load definitions", "error", err)
		return nil, errDefinitions
	}

	history := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt(defs.Categories, defs.Cards)},
	}
	response, err := p.client.CompleteChat(ctx, text, history)
	if err != nil {
		p.logger.Error("chat completion failed", "error", err)
		return nil, err
	}

	return p.candidateFromResponse(response, defs)
}

// ExtractReceipt parses a base64-encoded receipt photo into a candidate.
func (p *Parser) ExtractReceipt(ctx context.Context, imageBase64 string) (*model.ExpenseCandidate, error) {
	defs, err := p.defs.Definitions(ctx)
	if err != nil {
		p.logger.Error("failed to load definitions", "error", err)
		return nil, errDefinitions
	}

	response, err := p.client.AnalyzeImage(ctx, imageBase64, llm.ImageContext{
		Categories: defs.Categories,
		Cards:      defs.Cards,
	})
	if err != nil {
		p.logger.Error("receipt analysis failed", "error", err)
		return nil, err
	}

	return p.candidateFromResponse(response, defs)
}

// candidateFromResponse validates and normalizes a provider answer.
func (p *Parser) candidateFromResponse(response string, defs model.Definitions) (*model.ExpenseCandidate, error) {
	cleaned := strings.TrimSpace(llm.StripJSONFence(response))
	if cleaned == "" {
		return nil, errEmptyResponse
	}

	var raw aiExpense
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		p.logger.Warn("unparseable AI response", "response", truncate(cleaned, 200))
		return nil, errInvalidFormat
	}
	if raw.Error != nil && *raw.Error != "" {
		return nil, &providerReportedError{reason: *raw.Error}
	}

	amount := raw.Amount
	if amount == nil {
		amount = raw.Total
	}
	if amount == nil || *amount <= 0 || strings.TrimSpace(raw.Payee) == "" {
		return nil, errMissingFields
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if currency == "" || currency == model.Unknown {
		currency = model.DefaultCurrency
	}

	rawDate := ""
	if raw.Date != nil {
		rawDate = *raw.Date
	}

	return &model.ExpenseCandidate{
		Date:          model.CanonicalDate(rawDate, p.now()),
		Payee:         strings.TrimSpace(raw.Payee),
		Currency:      currency,
		Total:         decimal.NewFromFloat(*amount),
		Category:      defs.NormalizeCategory(raw.Category),
		PaymentMethod: defs.NormalizeCard(raw.PaymentMethod),
	}, nil
}

// ResolvePerson maps a Telegram user ID to a ledger person name. Unknown
// users fall back to the shared bot identity rather than failing the record.
func (p *Parser) ResolvePerson(ctx context.Context, telegramID string) string {
	if p.directory == nil || telegramID == "" {
		return model.FallbackPerson
	}
	user, err := p.directory.LookupByTelegramID(ctx, telegramID)
	if err != nil {
		p.logger.Warn("directory lookup failed", "telegram_id", telegramID, "error", err)
		return model.FallbackPerson
	}
	if user == nil || user.FirstName == "" {
		return model.FallbackPerson
	}
	return user.FirstName
}

// Record validates a candidate against the definitions sheet and appends it
// to the month tab of the ledger. The returned expense reflects what was
// actually written.
func (p *Parser) Record(ctx context.Context, cand model.ExpenseCandidate, person string) (model.RecordedExpense, error) {
	defs, err := p.defs.Definitions(ctx)
	if err != nil {
		return model.RecordedExpense{}, errDefinitions
	}

	cand.Category = defs.NormalizeCategory(cand.Category)
	cand.PaymentMethod = defs.NormalizeCard(cand.PaymentMethod)
	if person == "" {
		person = model.FallbackPerson
	}
	month := model.MonthLabel(cand.Date)

	err = p.store.AddExpense(ctx, month, cand.Date, cand.Payee, cand.Category, cand.Total, cand.PaymentMethod, person)
	if err != nil {
		p.logger.Error("ledger append failed", "month", month, "payee", cand.Payee, "error", err)
		return model.RecordedExpense{}, fmt.Errorf("%s: %w", msgAppendFailed, err)
	}

	recorded := model.RecordedExpense{
		Date:          cand.Date,
		Payee:         cand.Payee,
		Category:      cand.Category,
		Amount:        cand.Total,
		Currency:      cand.Currency,
		PaymentMethod: cand.PaymentMethod,
	}

	if p.notifier != nil {
		if nerr := p.notifier.NotifyExpense(ctx, service.ExpenseNotification{
			Date:          recorded.Date,
			Payee:         recorded.Payee,
			Category:      recorded.Category,
			Currency:      recorded.Currency,
			PaymentMethod: recorded.PaymentMethod,
			Person:        person,
			Amount:        recorded.Amount,
		}); nerr != nil {
			p.logger.Warn("expense notification failed", "error", nerr)
		}
	}

	return recorded, nil
}

// ParseAndRecord runs the full pipeline for a single free-text message:
// extraction, person resolution, ledger append, notification. It never
// returns an error; failures are reported inside the result so callers can
// relay them to the chat verbatim.
func (p *Parser) ParseAndRecord(ctx context.Context, text, telegramID string) (result model.ParsedExpense) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic during expense parsing", "panic", r)
			result = model.Failure(msgInternalError)
		}
	}()

	cand, err := p.Extract(ctx, text)
	if err != nil {
		return model.Failure(userReason(err))
	}

	person := p.ResolvePerson(ctx, telegramID)
	recorded, err := p.Record(ctx, *cand, person)
	if err != nil {
		return model.Failure(userReason(err))
	}
	return model.Success(recorded)
}

// userReason picks the message shown to the user for a pipeline error. The
// error's own message propagates verbatim; the generic internal-error text is
// reserved for errors that carry no message at all (the recovered-panic path
// supplies it directly).
func userReason(err error) string {
	var reported *providerReportedError
	if errors.As(err, &reported) {
		return reported.reason
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return msgInternalError
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
