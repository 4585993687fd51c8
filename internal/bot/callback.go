package bot

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/telebot.v3"

	"github.com/jqlim/expense-bot/internal/model"
	"github.com/jqlim/expense-bot/internal/session"
)

// handleCallback routes inline-button presses. Data is "<action>" or
// "<action>:<argument...>" with telebot's callback marker stripped.
func (r *Router) handleCallback(ctx context.Context, c *telebot.Callback) {
	defer func() {
		_ = r.transport.Respond(c)
	}()

	key := r.key(c.Message.Chat.ID, c.Sender.ID)
	s := r.sessions.Get(key)

	data := strings.TrimPrefix(c.Data, "\f")
	parts := strings.SplitN(data, ":", 3)
	action := parts[0]

	if s == nil || s.Candidate == nil {
		// Stale control from a cleared session.
		r.bestEffortDelete(c.Message.Chat.ID, c.Message.ID)
		return
	}

	switch action {
	case actionEdit:
		if len(parts) < 2 {
			return
		}
		r.promptFieldEdit(ctx, c, key, s, parts[1])
	case actionPick:
		if len(parts) < 3 {
			return
		}
		r.applyPick(c, key, s, parts[1], parts[2])
	case actionValidate:
		r.reportDate(c, s)
	case actionSubmit:
		r.submit(ctx, c, key, s)
	case actionCancel:
		r.cancel(c, key)
	default:
		r.logger.Warn("unknown callback action", "action", action)
	}
}

// promptFieldEdit starts a single-field edit. Category and payment method
// get a pick-list from the definitions; everything else asks for a typed
// reply.
func (r *Router) promptFieldEdit(ctx context.Context, c *telebot.Callback, key string, s *session.Session, field string) {
	if !model.IsEditableField(field) {
		return
	}

	if field == "category" || field == "payment_method" {
		if defs, err := r.defs.Definitions(ctx); err == nil {
			values := defs.Categories
			if field == "payment_method" {
				values = defs.Cards
			}
			prompt := r.send(c.Message.Chat, "Pick a "+fieldLabels[field]+":", pickListMarkup(field, values))
			if prompt != nil {
				s.Pending = &session.PendingEdit{Field: field, PromptID: prompt.ID}
				r.sessions.Set(key, s)
			}
			return
		}
		// Definitions unavailable; fall back to a typed reply.
	}

	prompt := r.send(c.Message.Chat, "Send me the new value for "+fieldLabels[field]+".")
	if prompt == nil {
		return
	}
	s.Pending = &session.PendingEdit{Field: field, PromptID: prompt.ID}
	r.sessions.Set(key, s)
}

// applyPick resolves a pick-list selection.
func (r *Router) applyPick(c *telebot.Callback, key string, s *session.Session, field, value string) {
	if !model.IsEditableField(field) {
		return
	}
	switch field {
	case "category":
		s.Candidate.Category = value
	case "payment_method":
		s.Candidate.PaymentMethod = value
	default:
		return
	}

	if s.Pending != nil && s.Pending.Field == field {
		r.bestEffortDelete(c.Message.Chat.ID, s.Pending.PromptID)
		s.Pending = nil
	}
	r.sessions.Set(key, s)
	r.presentCandidate(c.Message.Chat, s)
}

// reportDate answers the validate button: the canonical date and the month
// tab it would land on, with no mutation.
func (r *Router) reportDate(c *telebot.Callback, s *session.Session) {
	text := fmt.Sprintf("Date resolves to %s, ledger tab %q.",
		model.SheetDate(s.Candidate.Date), model.MonthLabel(s.Candidate.Date))
	r.send(c.Message.Chat, text)
}

// submit appends the candidate to the ledger. The session is cleared no
// matter how the append goes; a failed submit starts over from scratch.
func (r *Router) submit(ctx context.Context, c *telebot.Callback, key string, s *session.Session) {
	person := r.parser.ResolvePerson(ctx, c.Sender.Recipient())
	recorded, err := r.parser.Record(ctx, *s.Candidate, person)

	r.sessions.Clear(key)

	if err != nil {
		r.logger.Error("submit failed", "chat_id", c.Message.Chat.ID, "error", err)
		r.editOrSend(c.Message.Chat, s.ControlID, err.Error())
		return
	}

	text := fmt.Sprintf("%s\n%s %s at %s on %s (%s, %s)",
		msgRecorded, recorded.Currency, recorded.Amount.StringFixed(2), recorded.Payee,
		model.SheetDate(recorded.Date), recorded.Category, recorded.PaymentMethod)
	r.editOrSend(c.Message.Chat, s.ControlID, text)
}

// cancel drops the candidate and rewrites the card as a cancellation notice.
func (r *Router) cancel(c *telebot.Callback, key string) {
	r.sessions.Clear(key)
	if _, err := r.transport.Edit(c.Message, msgCancelled); err != nil {
		r.logger.Debug("failed to edit cancelled card", "chat_id", c.Message.Chat.ID, "error", err)
	}
}

// editOrSend rewrites the confirmation card in place, falling back to a
// fresh message when the card is gone.
func (r *Router) editOrSend(chat *telebot.Chat, controlID int, text string) {
	if controlID != 0 {
		if _, err := r.transport.Edit(storedMessage(chat.ID, controlID), text); err == nil {
			return
		}
	}
	r.send(chat, text)
}
