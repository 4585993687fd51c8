package bot

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/telebot.v3"

	"github.com/jqlim/expense-bot/internal/model"
	"github.com/jqlim/expense-bot/internal/nlp"
	"github.com/jqlim/expense-bot/internal/service"
	"github.com/jqlim/expense-bot/internal/session"
)

// Router drives the expense intake state machine for one bot instance.
type Router struct {
	transport Transport
	parser    *nlp.Parser
	sessions  session.Store
	directory service.UserDirectory
	defs      service.DefinitionsSource
	logger    *slog.Logger
	now       func() time.Time
}

// NewRouter creates a router with all its collaborators.
func NewRouter(transport Transport, parser *nlp.Parser, sessions session.Store, directory service.UserDirectory, defs service.DefinitionsSource, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		transport: transport,
		parser:    parser,
		sessions:  sessions,
		directory: directory,
		defs:      defs,
		logger:    logger,
		now:       time.Now,
	}
}

// Register wires the router into telebot's handler table.
func (r *Router) Register(b *telebot.Bot) {
	b.Handle("/start", func(c telebot.Context) error {
		r.dispatchMessage(c.Message(), r.handleStart)
		return nil
	})
	b.Handle("/help", func(c telebot.Context) error {
		r.dispatchMessage(c.Message(), r.handleHelp)
		return nil
	})
	b.Handle("/add", func(c telebot.Context) error {
		r.dispatchMessage(c.Message(), r.handleAdd)
		return nil
	})
	b.Handle("/refresh", func(c telebot.Context) error {
		r.dispatchMessage(c.Message(), r.handleRefresh)
		return nil
	})
	b.Handle(telebot.OnText, func(c telebot.Context) error {
		r.dispatchMessage(c.Message(), r.handleText)
		return nil
	})
	b.Handle(telebot.OnPhoto, func(c telebot.Context) error {
		r.dispatchMessage(c.Message(), r.handlePhoto)
		return nil
	})
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		r.dispatchCallback(c.Callback())
		return nil
	})
}

// dispatchMessage runs the gates and then the handler, containing any panic
// so one bad update cannot take the process down.
func (r *Router) dispatchMessage(m *telebot.Message, handler func(context.Context, *telebot.Message)) {
	if m == nil || m.Sender == nil {
		return
	}
	defer r.recoverPanic(m.Chat.ID)

	ctx := context.Background()
	if !r.authorized(ctx, m.Sender) {
		r.logger.Debug("dropping update from unknown sender", "sender_id", m.Sender.ID)
		return
	}
	if !r.inScope(m) {
		r.sessions.Clear(r.key(m.Chat.ID, m.Sender.ID))
		r.send(m.Chat, msgRedirectPrivate)
		return
	}
	handler(ctx, m)
}

// dispatchCallback is the callback-side twin of dispatchMessage. Callbacks
// only originate from controls the bot itself posted, so there is no group
// mention gate, just authorization.
func (r *Router) dispatchCallback(c *telebot.Callback) {
	if c == nil || c.Sender == nil || c.Message == nil {
		return
	}
	defer r.recoverPanic(c.Message.Chat.ID)

	ctx := context.Background()
	if !r.authorized(ctx, c.Sender) {
		r.logger.Debug("dropping callback from unknown sender", "sender_id", c.Sender.ID)
		return
	}
	r.handleCallback(ctx, c)
}

func (r *Router) recoverPanic(chatID int64) {
	if rec := recover(); rec != nil {
		r.logger.Error("panic while handling update", "chat_id", chatID, "panic", rec)
	}
}

// authorized checks the sender against the user directory. Lookup failures
// count as unauthorized; silence beats an interaction oracle.
func (r *Router) authorized(ctx context.Context, sender *telebot.User) bool {
	user, err := r.directory.LookupByTelegramID(ctx, strconv.FormatInt(sender.ID, 10))
	if err != nil {
		r.logger.Warn("directory lookup failed during authorization", "sender_id", sender.ID, "error", err)
		return false
	}
	return user != nil
}

// inScope reports whether a group-chat message is addressed to the bot. In
// private chats everything is in scope; in groups the bot must be mentioned,
// a command must carry its username, or a candidate flow must already be open.
func (r *Router) inScope(m *telebot.Message) bool {
	if m.Private() {
		return true
	}
	username := r.transport.Username()
	if username != "" && strings.Contains(m.Text, "@"+username) {
		return true
	}
	s := r.sessions.Get(r.key(m.Chat.ID, m.Sender.ID))
	return s != nil && s.Type == session.TypeReceipt
}

func (r *Router) key(chatID, userID int64) string {
	return session.Key(chatID, userID)
}

func (r *Router) handleStart(_ context.Context, m *telebot.Message) {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(markup.Row(markup.Text("/add"), markup.Text("/help")))
	r.send(m.Chat, msgWelcome, markup)
}

func (r *Router) handleHelp(_ context.Context, m *telebot.Message) {
	r.send(m.Chat, msgHelp)
}

// definitionsInvalidator is implemented by definitions sources that cache
// their lists.
type definitionsInvalidator interface {
	InvalidateDefinitions()
}

// handleRefresh drops any cached definitions so the next extraction reads
// the sheet fresh.
func (r *Router) handleRefresh(_ context.Context, m *telebot.Message) {
	if inv, ok := r.defs.(definitionsInvalidator); ok {
		inv.InvalidateDefinitions()
	}
	r.send(m.Chat, msgRefreshed)
}

// handleAdd seeds a candidate either from an inline JSON payload or, with no
// payload, from a blank template the user fills in through the edit buttons.
func (r *Router) handleAdd(ctx context.Context, m *telebot.Message) {
	payload := strings.TrimSpace(stripMention(m.Payload, r.transport.Username()))

	cand := &model.ExpenseCandidate{
		Date:          model.CanonicalDate("", r.now()),
		Currency:      model.DefaultCurrency,
		Category:      model.Unknown,
		PaymentMethod: model.Unknown,
	}
	if payload != "" {
		var seed struct {
			Date          string   `json:"date"`
			Payee         string   `json:"payee"`
			Currency      string   `json:"currency"`
			Total         *float64 `json:"total"`
			Category      string   `json:"category"`
			PaymentMethod string   `json:"payment_method"`
		}
		if err := json.Unmarshal([]byte(payload), &seed); err != nil {
			r.send(m.Chat, msgBadPayload)
			return
		}
		if seed.Date != "" {
			cand.Date = model.CanonicalDate(seed.Date, r.now())
		}
		cand.Payee = seed.Payee
		if seed.Currency != "" {
			cand.Currency = strings.ToUpper(seed.Currency)
		}
		if seed.Total != nil {
			cand.Total = decimal.NewFromFloat(*seed.Total)
		}
		if seed.Category != "" {
			cand.Category = seed.Category
		}
		if seed.PaymentMethod != "" {
			cand.PaymentMethod = seed.PaymentMethod
		}
	}

	s := &session.Session{Type: session.TypeReceipt, Candidate: cand}
	r.sessions.Set(r.key(m.Chat.ID, m.Sender.ID), s)
	r.presentCandidate(m.Chat, s)
}

// stripMention removes a trailing @botname from a command payload, which
// Telegram includes when the command is issued in a group.
func stripMention(payload, username string) string {
	if username == "" {
		return payload
	}
	return strings.ReplaceAll(payload, "@"+username, "")
}
