package bot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"github.com/jqlim/expense-bot/internal/common"
	"github.com/jqlim/expense-bot/internal/llm"
	"github.com/jqlim/expense-bot/internal/model"
	"github.com/jqlim/expense-bot/internal/nlp"
	"github.com/jqlim/expense-bot/internal/service"
	"github.com/jqlim/expense-bot/internal/session"
)

// mockTransport records outbound chat operations.
type mockTransport struct {
	mu       sync.Mutex
	sent     []sentRecord
	edits    []editRecord
	deletes  []string
	fileData []byte
	fileErr  error
	username string
	nextID   int
}

type sentRecord struct {
	Text   string
	Markup *telebot.ReplyMarkup
}

type editRecord struct {
	Sig    string
	Text   string
	Markup *telebot.ReplyMarkup
}

func extractMarkup(opts []any) *telebot.ReplyMarkup {
	for _, o := range opts {
		if m, ok := o.(*telebot.ReplyMarkup); ok {
			return m
		}
	}
	return nil
}

func (t *mockTransport) Send(to telebot.Recipient, what any, opts ...any) (*telebot.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.sent = append(t.sent, sentRecord{Text: fmt.Sprint(what), Markup: extractMarkup(opts)})
	return &telebot.Message{ID: t.nextID}, nil
}

func (t *mockTransport) Edit(msg telebot.Editable, what any, opts ...any) (*telebot.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	msgID, chatID := msg.MessageSig()
	t.edits = append(t.edits, editRecord{
		Sig:    fmt.Sprintf("%d/%s", chatID, msgID),
		Text:   fmt.Sprint(what),
		Markup: extractMarkup(opts),
	})
	return &telebot.Message{}, nil
}

func (t *mockTransport) Delete(msg telebot.Editable) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	msgID, chatID := msg.MessageSig()
	t.deletes = append(t.deletes, fmt.Sprintf("%d/%s", chatID, msgID))
	return nil
}

func (t *mockTransport) Respond(*telebot.Callback, ...*telebot.CallbackResponse) error { return nil }

func (t *mockTransport) Notify(telebot.Recipient, telebot.ChatAction) error { return nil }

func (t *mockTransport) File(*telebot.File) (io.ReadCloser, error) {
	if t.fileErr != nil {
		return nil, t.fileErr
	}
	return io.NopCloser(bytes.NewReader(t.fileData)), nil
}

func (t *mockTransport) Username() string { return t.username }

func (t *mockTransport) lastSent() *sentRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sent) == 0 {
		return nil
	}
	return &t.sent[len(t.sent)-1]
}

// fixture bundles a router with all its mocks.
type fixture struct {
	router    *Router
	transport *mockTransport
	client    *llm.MockClient
	defs      *service.MockDefinitionsSource
	store     *service.MockExpenseStore
	sessions  session.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	transport := &mockTransport{username: "expensebot"}
	client := &llm.MockClient{}
	defs := &service.MockDefinitionsSource{Defs: model.Definitions{
		Categories: []string{"Dining", "Groceries"},
		Cards:      []string{"Amex", "OCBC365"},
		Persons:    []string{"Justin"},
	}}
	store := &service.MockExpenseStore{}
	dir := &service.MockUserDirectory{Users: map[string]service.DirectoryUser{
		"5000147974": {TelegramID: "5000147974", FirstName: "Justin"},
	}}
	parser := nlp.NewParser(client, defs, store, dir, nil, logger)
	sessions := session.NewMemoryStore()
	router := NewRouter(transport, parser, sessions, dir, defs, logger)
	router.now = func() time.Time { return time.Date(2024, 12, 6, 10, 0, 0, 0, time.UTC) }
	return &fixture{router: router, transport: transport, client: client, defs: defs, store: store, sessions: sessions}
}

func privateChat() *telebot.Chat { return &telebot.Chat{ID: 10, Type: telebot.ChatPrivate} }

func groupChat() *telebot.Chat { return &telebot.Chat{ID: -100, Type: telebot.ChatGroup} }

func knownSender() *telebot.User { return &telebot.User{ID: 5000147974} }

func textMessage(chat *telebot.Chat, sender *telebot.User, text string) *telebot.Message {
	return &telebot.Message{ID: 500, Chat: chat, Sender: sender, Text: text}
}

func callback(chat *telebot.Chat, sender *telebot.User, data string) *telebot.Callback {
	return &telebot.Callback{
		Sender:  sender,
		Data:    "\f" + data,
		Message: &telebot.Message{ID: 77, Chat: chat, Sender: sender},
	}
}

func validResponse() string {
	return `{"amount": 10.5, "payee": "NTUC Fairprice", "category": "Groceries", "payment_method": "OCBC365", "currency": "SGD", "date": "2024-12-06"}`
}

func TestUnknownSenderSilentlyDropped(t *testing.T) {
	f := newFixture(t)
	m := textMessage(privateChat(), &telebot.User{ID: 999}, "Spent $10 at NTUC")

	f.router.dispatchMessage(m, f.router.handleText)

	assert.Empty(t, f.transport.sent)
	assert.Empty(t, f.client.ChatCalls)
}

func TestGroupMessageWithoutMentionRedirects(t *testing.T) {
	f := newFixture(t)
	key := session.Key(-100, 5000147974)
	f.sessions.Set(key, &session.Session{Type: session.TypeMessage})

	m := textMessage(groupChat(), knownSender(), "Spent $10 at NTUC")
	f.router.dispatchMessage(m, f.router.handleText)

	require.NotNil(t, f.transport.lastSent())
	assert.Equal(t, msgRedirectPrivate, f.transport.lastSent().Text)
	assert.Nil(t, f.sessions.Get(key))
	assert.Empty(t, f.client.ChatCalls)
}

func TestGroupMessageWithMentionHandled(t *testing.T) {
	f := newFixture(t)
	f.client.CompleteChatFunc = func(context.Context, string, []llm.Message) (string, error) {
		return validResponse(), nil
	}

	m := textMessage(groupChat(), knownSender(), "@expensebot spent $10.50 at NTUC")
	f.router.dispatchMessage(m, f.router.handleText)

	require.Len(t, f.client.ChatCalls, 1)
	s := f.sessions.Get(session.Key(-100, 5000147974))
	require.NotNil(t, s)
	assert.Equal(t, session.TypeReceipt, s.Type)
}

func TestGroupMessageWithOpenReceiptSessionHandled(t *testing.T) {
	f := newFixture(t)
	key := session.Key(-100, 5000147974)
	f.sessions.Set(key, &session.Session{
		Type:      session.TypeReceipt,
		Candidate: &model.ExpenseCandidate{Payee: "NTUC", Date: "2024-12-06T00:00:00Z"},
		Pending:   &session.PendingEdit{Field: "payee", PromptID: 42},
	})

	m := textMessage(groupChat(), knownSender(), "Cold Storage")
	f.router.dispatchMessage(m, f.router.handleText)

	s := f.sessions.Get(key)
	require.NotNil(t, s)
	assert.Equal(t, "Cold Storage", s.Candidate.Payee)
}

func TestTextExtractionOpensConfirmFlow(t *testing.T) {
	f := newFixture(t)
	f.client.CompleteChatFunc = func(context.Context, string, []llm.Message) (string, error) {
		return validResponse(), nil
	}

	m := textMessage(privateChat(), knownSender(), "Spent $10.50 at NTUC with OCBC365")
	f.router.dispatchMessage(m, f.router.handleText)

	s := f.sessions.Get(session.Key(10, 5000147974))
	require.NotNil(t, s)
	require.NotNil(t, s.Candidate)
	assert.Equal(t, session.TypeReceipt, s.Type)
	assert.Equal(t, "NTUC Fairprice", s.Candidate.Payee)
	assert.Equal(t, "Groceries", s.Candidate.Category)

	card := f.transport.lastSent()
	require.NotNil(t, card)
	assert.Contains(t, card.Text, "NTUC Fairprice")
	require.NotNil(t, card.Markup, "confirmation card must carry inline controls")
	assert.NotZero(t, s.ControlID)

	// Nothing is appended until submit.
	assert.Equal(t, 0, f.store.CallCount())
}

func TestTextExtractionFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.client.CompleteChatFunc = func(context.Context, string, []llm.Message) (string, error) {
		return "This is not JSON", nil
	}

	m := textMessage(privateChat(), knownSender(), "hello there")
	f.router.dispatchMessage(m, f.router.handleText)

	require.NotNil(t, f.transport.lastSent())
	assert.Equal(t, msgExtractFallback, f.transport.lastSent().Text)
	s := f.sessions.Get(session.Key(10, 5000147974))
	require.NotNil(t, s)
	assert.Equal(t, session.TypeMessage, s.Type)
	assert.Nil(t, s.Candidate)
}

func TestFieldEditRoundTrip(t *testing.T) {
	f := newFixture(t)
	key := session.Key(10, 5000147974)
	f.sessions.Set(key, &session.Session{
		Type: session.TypeReceipt,
		Candidate: &model.ExpenseCandidate{
			Date:  "2024-12-06T00:00:00Z",
			Payee: "NTUC",
		},
		ControlID: 77,
	})

	// Tapping the date button records a pending edit and prompts.
	f.router.dispatchCallback(callback(privateChat(), knownSender(), "edit:date"))

	s := f.sessions.Get(key)
	require.NotNil(t, s.Pending)
	assert.Equal(t, "date", s.Pending.Field)
	assert.NotZero(t, s.Pending.PromptID)
	assert.Contains(t, f.transport.lastSent().Text, "Date")

	// The typed reply overwrites only the date and clears the descriptor.
	m := textMessage(privateChat(), knownSender(), "2024-11-30")
	f.router.dispatchMessage(m, f.router.handleText)

	s = f.sessions.Get(key)
	require.NotNil(t, s)
	assert.Nil(t, s.Pending)
	assert.Equal(t, "2024-11-30T00:00:00Z", s.Candidate.Date)
	assert.Equal(t, "NTUC", s.Candidate.Payee)
	assert.Equal(t, session.TypeReceipt, s.Type)

	// Prompt and reply messages are cleaned up; the card is re-edited.
	assert.Len(t, f.transport.deletes, 2)
	require.NotEmpty(t, f.transport.edits)
	assert.Contains(t, f.transport.edits[len(f.transport.edits)-1].Text, "11/30/24")
}

func TestInvalidTotalEditRejected(t *testing.T) {
	f := newFixture(t)
	key := session.Key(10, 5000147974)
	f.sessions.Set(key, &session.Session{
		Type:      session.TypeReceipt,
		Candidate: &model.ExpenseCandidate{Date: "2024-12-06T00:00:00Z"},
		Pending:   &session.PendingEdit{Field: "total", PromptID: 42},
	})

	m := textMessage(privateChat(), knownSender(), "not a number")
	f.router.dispatchMessage(m, f.router.handleText)

	s := f.sessions.Get(key)
	require.NotNil(t, s.Pending, "pending edit survives a rejected value")
	assert.Contains(t, f.transport.lastSent().Text, "not a number")
}

func TestCategoryPickList(t *testing.T) {
	f := newFixture(t)
	key := session.Key(10, 5000147974)
	f.sessions.Set(key, &session.Session{
		Type:      session.TypeReceipt,
		Candidate: &model.ExpenseCandidate{Date: "2024-12-06T00:00:00Z"},
		ControlID: 77,
	})

	f.router.dispatchCallback(callback(privateChat(), knownSender(), "edit:category"))

	prompt := f.transport.lastSent()
	require.NotNil(t, prompt)
	require.NotNil(t, prompt.Markup, "category edit offers a pick-list")

	f.router.dispatchCallback(callback(privateChat(), knownSender(), "pick:category:Dining"))

	s := f.sessions.Get(key)
	assert.Equal(t, "Dining", s.Candidate.Category)
	assert.Nil(t, s.Pending)
}

func TestValidateReportsDateAndMonth(t *testing.T) {
	f := newFixture(t)
	key := session.Key(10, 5000147974)
	f.sessions.Set(key, &session.Session{
		Type:      session.TypeReceipt,
		Candidate: &model.ExpenseCandidate{Date: "2024-12-06T00:00:00Z"},
	})

	f.router.dispatchCallback(callback(privateChat(), knownSender(), "validate"))

	reply := f.transport.lastSent()
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "12/6/24")
	assert.Contains(t, reply.Text, "Dec 24")

	// No mutation, session intact.
	s := f.sessions.Get(key)
	require.NotNil(t, s)
	assert.Equal(t, "2024-12-06T00:00:00Z", s.Candidate.Date)
}

func TestSubmitAppendsAndClearsSession(t *testing.T) {
	f := newFixture(t)
	key := session.Key(10, 5000147974)
	f.sessions.Set(key, &session.Session{
		Type: session.TypeReceipt,
		Candidate: &model.ExpenseCandidate{
			Date:          "2024-12-06T00:00:00Z",
			Payee:         "NTUC Fairprice",
			Currency:      "SGD",
			Total:         decimalFromString(t, "10.5"),
			Category:      "Groceries",
			PaymentMethod: "OCBC365",
		},
		ControlID: 77,
	})

	f.router.dispatchCallback(callback(privateChat(), knownSender(), "submit"))

	require.Equal(t, 1, f.store.CallCount())
	call := f.store.LastCall()
	assert.Equal(t, "Dec 24", call.Month)
	assert.Equal(t, "NTUC Fairprice", call.Payee)
	assert.Equal(t, "Justin", call.Person)

	assert.Nil(t, f.sessions.Get(key))
	require.NotEmpty(t, f.transport.edits)
	assert.Contains(t, f.transport.edits[len(f.transport.edits)-1].Text, msgRecorded)
}

func TestSubmitFailureReportsAndClearsSession(t *testing.T) {
	f := newFixture(t)
	f.store.Err = fmt.Errorf("tab missing")
	key := session.Key(10, 5000147974)
	f.sessions.Set(key, &session.Session{
		Type: session.TypeReceipt,
		Candidate: &model.ExpenseCandidate{
			Date:  "2024-12-06T00:00:00Z",
			Payee: "NTUC",
			Total: decimalFromString(t, "10.5"),
		},
		ControlID: 77,
	})

	f.router.dispatchCallback(callback(privateChat(), knownSender(), "submit"))

	assert.Nil(t, f.sessions.Get(key))
	require.NotEmpty(t, f.transport.edits)
	assert.Contains(t, f.transport.edits[len(f.transport.edits)-1].Text, "Failed to add expense")
}

func TestCancelResetsSession(t *testing.T) {
	f := newFixture(t)
	key := session.Key(10, 5000147974)
	f.sessions.Set(key, &session.Session{
		Type:      session.TypeReceipt,
		Candidate: &model.ExpenseCandidate{Payee: "NTUC", Date: "2024-12-06T00:00:00Z"},
		ControlID: 77,
	})

	f.router.dispatchCallback(callback(privateChat(), knownSender(), "cancel"))

	assert.Nil(t, f.sessions.Get(key))
	require.NotEmpty(t, f.transport.edits)
	assert.Equal(t, msgCancelled, f.transport.edits[len(f.transport.edits)-1].Text)
}

func TestStaleCallbackDeletesControl(t *testing.T) {
	f := newFixture(t)

	f.router.dispatchCallback(callback(privateChat(), knownSender(), "submit"))

	require.Len(t, f.transport.deletes, 1)
	assert.Equal(t, "10/77", f.transport.deletes[0])
	assert.Equal(t, 0, f.store.CallCount())
}

func TestCorrectionUpdatesCandidate(t *testing.T) {
	f := newFixture(t)
	f.client.CompleteChatFunc = func(context.Context, string, []llm.Message) (string, error) {
		return `{"date": null, "payee": null, "currency": null, "total": 32.5, "category": null, "payment_method": null}`, nil
	}
	key := session.Key(10, 5000147974)
	f.sessions.Set(key, &session.Session{
		Type: session.TypeReceipt,
		Candidate: &model.ExpenseCandidate{
			Date:  "2024-12-06T00:00:00Z",
			Payee: "NTUC",
			Total: decimalFromString(t, "30"),
		},
		ControlID: 77,
	})

	m := textMessage(privateChat(), knownSender(), "the total was 32.50")
	f.router.dispatchMessage(m, f.router.handleText)

	s := f.sessions.Get(key)
	require.NotNil(t, s)
	assert.Equal(t, "32.5", s.Candidate.Total.String())
	assert.Equal(t, "NTUC", s.Candidate.Payee)
}

func TestNonCorrectionRepliesFallback(t *testing.T) {
	f := newFixture(t)
	f.client.CompleteChatFunc = func(context.Context, string, []llm.Message) (string, error) {
		return "null", nil
	}
	key := session.Key(10, 5000147974)
	f.sessions.Set(key, &session.Session{
		Type:      session.TypeReceipt,
		Candidate: &model.ExpenseCandidate{Date: "2024-12-06T00:00:00Z"},
	})

	m := textMessage(privateChat(), knownSender(), "how's the weather")
	f.router.dispatchMessage(m, f.router.handleText)

	require.NotNil(t, f.transport.lastSent())
	assert.Equal(t, msgNotACorrection, f.transport.lastSent().Text)
}

func TestPhotoFlow(t *testing.T) {
	f := newFixture(t)
	f.transport.fileData = []byte("fake image bytes")
	f.client.AnalyzeImageFunc = func(_ context.Context, img string, _ llm.ImageContext) (string, error) {
		assert.NotEmpty(t, img)
		return `{"date": "2024-12-05", "payee": "Din Tai Fung", "currency": "SGD", "total": 48.6, "category": "Dining", "payment_method": "Amex"}`, nil
	}

	m := &telebot.Message{
		ID:     501,
		Chat:   privateChat(),
		Sender: knownSender(),
		Photo:  &telebot.Photo{File: telebot.File{FileID: "abc"}},
	}
	f.router.dispatchMessage(m, f.router.handlePhoto)

	s := f.sessions.Get(session.Key(10, 5000147974))
	require.NotNil(t, s)
	assert.Equal(t, session.TypeReceipt, s.Type)
	assert.Equal(t, "Din Tai Fung", s.Candidate.Payee)
}

func TestPhotoRateLimitSuggestsTextPath(t *testing.T) {
	f := newFixture(t)
	f.transport.fileData = []byte("fake image bytes")
	f.client.AnalyzeImageFunc = func(context.Context, string, llm.ImageContext) (string, error) {
		return "", fmt.Errorf("%w: vision API", common.ErrRateLimit)
	}

	m := &telebot.Message{
		ID:     501,
		Chat:   privateChat(),
		Sender: knownSender(),
		Photo:  &telebot.Photo{File: telebot.File{FileID: "abc"}},
	}
	f.router.dispatchMessage(m, f.router.handlePhoto)

	require.NotNil(t, f.transport.lastSent())
	assert.Equal(t, msgPhotoRateLimited, f.transport.lastSent().Text)
	assert.Nil(t, f.sessions.Get(session.Key(10, 5000147974)))
}

func TestPhotoDownloadFailure(t *testing.T) {
	f := newFixture(t)
	f.transport.fileErr = fmt.Errorf("file gone")

	m := &telebot.Message{
		ID:     501,
		Chat:   privateChat(),
		Sender: knownSender(),
		Photo:  &telebot.Photo{File: telebot.File{FileID: "abc"}},
	}
	f.router.dispatchMessage(m, f.router.handlePhoto)

	require.NotNil(t, f.transport.lastSent())
	assert.Equal(t, msgPhotoDownloadFailed, f.transport.lastSent().Text)
	assert.Empty(t, f.client.ImageCalls)
}

func TestAddCommandWithPayload(t *testing.T) {
	f := newFixture(t)

	m := textMessage(privateChat(), knownSender(), "/add")
	m.Payload = `{"payee": "NTUC", "total": 12.5, "category": "Groceries"}`
	f.router.dispatchMessage(m, f.router.handleAdd)

	s := f.sessions.Get(session.Key(10, 5000147974))
	require.NotNil(t, s)
	assert.Equal(t, session.TypeReceipt, s.Type)
	assert.Equal(t, "NTUC", s.Candidate.Payee)
	assert.Equal(t, "12.5", s.Candidate.Total.String())
	assert.Equal(t, "Groceries", s.Candidate.Category)
	assert.Equal(t, "SGD", s.Candidate.Currency)
}

func TestAddCommandWithoutPayload(t *testing.T) {
	f := newFixture(t)

	m := textMessage(privateChat(), knownSender(), "/add")
	f.router.dispatchMessage(m, f.router.handleAdd)

	s := f.sessions.Get(session.Key(10, 5000147974))
	require.NotNil(t, s)
	assert.Equal(t, session.TypeReceipt, s.Type)
	assert.Equal(t, model.Unknown, s.Candidate.Category)
	assert.Equal(t, model.DefaultCurrency, s.Candidate.Currency)
	assert.Equal(t, "2024-12-06T10:00:00Z", s.Candidate.Date)
}

func TestAddCommandBadPayload(t *testing.T) {
	f := newFixture(t)

	m := textMessage(privateChat(), knownSender(), "/add")
	m.Payload = "{not json"
	f.router.dispatchMessage(m, f.router.handleAdd)

	require.NotNil(t, f.transport.lastSent())
	assert.Equal(t, msgBadPayload, f.transport.lastSent().Text)
	assert.Nil(t, f.sessions.Get(session.Key(10, 5000147974)))
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestHelpAndStart(t *testing.T) {
	f := newFixture(t)

	f.router.dispatchMessage(textMessage(privateChat(), knownSender(), "/start"), f.router.handleStart)
	assert.Equal(t, msgWelcome, f.transport.lastSent().Text)

	f.router.dispatchMessage(textMessage(privateChat(), knownSender(), "/help"), f.router.handleHelp)
	assert.Equal(t, msgHelp, f.transport.lastSent().Text)
}

func TestRefreshDropsCachedDefinitions(t *testing.T) {
	f := newFixture(t)

	f.router.dispatchMessage(textMessage(privateChat(), knownSender(), "/refresh"), f.router.handleRefresh)

	assert.Equal(t, 1, f.defs.Invalidations)
	assert.Equal(t, msgRefreshed, f.transport.lastSent().Text)
}

func TestStripMention(t *testing.T) {
	assert.Equal(t, `{"total": 5}`, strings.TrimSpace(stripMention(`{"total": 5} @expensebot`, "expensebot")))
	assert.Equal(t, "payload", stripMention("payload", ""))
}
