package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/telebot.v3"

	"github.com/jqlim/expense-bot/internal/model"
	"github.com/jqlim/expense-bot/internal/session"
)

// handleText routes a free-text message: a pending field edit consumes it,
// an open candidate treats it as a correction, anything else goes through
// extraction.
func (r *Router) handleText(ctx context.Context, m *telebot.Message) {
	key := r.key(m.Chat.ID, m.Sender.ID)
	s := r.sessions.Get(key)

	switch {
	case s != nil && s.Candidate != nil && s.Pending != nil:
		r.applyPendingEdit(m, key, s)
	case s != nil && s.Candidate != nil && s.Type == session.TypeReceipt:
		r.applyCorrection(ctx, m, key, s)
	default:
		r.extractFromText(ctx, m, key)
	}
}

// applyPendingEdit overwrites the single field the user was asked about,
// cleans up the prompt and the reply, and refreshes the card.
func (r *Router) applyPendingEdit(m *telebot.Message, key string, s *session.Session) {
	field := s.Pending.Field
	if err := setField(s.Candidate, field, m.Text, r.now()); err != nil {
		r.send(m.Chat, err.Error())
		return
	}

	r.bestEffortDelete(m.Chat.ID, s.Pending.PromptID)
	r.bestEffortDelete(m.Chat.ID, m.ID)

	s.Pending = nil
	r.sessions.Set(key, s)
	r.presentCandidate(m.Chat, s)
}

// setField parses and assigns one typed field value. The error, when any,
// is already phrased for the user.
func setField(cand *model.ExpenseCandidate, field, value string, now time.Time) error {
	value = strings.TrimSpace(value)
	switch field {
	case "date":
		cand.Date = model.CanonicalDate(value, now)
	case "payee":
		cand.Payee = value
	case "currency":
		cand.Currency = strings.ToUpper(value)
	case "total":
		d, err := decimal.NewFromString(strings.TrimPrefix(value, "$"))
		if err != nil || d.IsNegative() {
			return fmt.Errorf("%q doesn't look like an amount, send a number like 12.50", value)
		}
		cand.Total = d
	case "category":
		cand.Category = value
	case "payment_method":
		cand.PaymentMethod = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// applyCorrection runs the correction interpreter over an open candidate.
func (r *Router) applyCorrection(ctx context.Context, m *telebot.Message, key string, s *session.Session) {
	_ = r.transport.Notify(m.Chat, telebot.Typing)

	patch, err := r.parser.InterpretCorrection(ctx, *s.Candidate, m.Text)
	if err != nil {
		r.logger.Error("correction interpretation failed", "chat_id", m.Chat.ID, "error", err)
		r.send(m.Chat, msgNotACorrection)
		return
	}
	if patch == nil {
		r.send(m.Chat, msgNotACorrection)
		return
	}

	patch.Apply(s.Candidate)
	r.sessions.Set(key, s)
	r.presentCandidate(m.Chat, s)
}

// extractFromText runs the extractor over a fresh message and opens the
// confirm flow on success.
func (r *Router) extractFromText(ctx context.Context, m *telebot.Message, key string) {
	_ = r.transport.Notify(m.Chat, telebot.Typing)

	cand, err := r.parser.Extract(ctx, m.Text)
	if err != nil {
		r.logger.Info("text extraction failed", "chat_id", m.Chat.ID, "error", err)
		r.sessions.Set(key, &session.Session{Type: session.TypeMessage})
		r.send(m.Chat, msgExtractFallback)
		return
	}

	s := &session.Session{Type: session.TypeReceipt, Candidate: cand}
	r.sessions.Set(key, s)
	r.presentCandidate(m.Chat, s)
}
