package bot

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/telebot.v3"

	"github.com/jqlim/expense-bot/internal/model"
	"github.com/jqlim/expense-bot/internal/session"
)

// Callback action prefixes. Button data is "<action>" or
// "<action>:<argument>", with telebot's \f marker stripped before routing.
const (
	actionEdit     = "edit"
	actionPick     = "pick"
	actionValidate = "validate"
	actionSubmit   = "submit"
	actionCancel   = "cancel"
)

// fieldLabels maps candidate field names to button labels.
var fieldLabels = map[string]string{
	"date":           "Date",
	"payee":          "Payee",
	"currency":       "Currency",
	"total":          "Total",
	"category":       "Category",
	"payment_method": "Payment",
}

// formatCandidate renders the confirmation card.
func formatCandidate(cand *model.ExpenseCandidate) string {
	var b strings.Builder
	b.WriteString("Here's what I've got:\n\n")
	fmt.Fprintf(&b, "Date: %s\n", model.SheetDate(cand.Date))
	fmt.Fprintf(&b, "Payee: %s\n", orDash(cand.Payee))
	fmt.Fprintf(&b, "Currency: %s\n", orDash(cand.Currency))
	fmt.Fprintf(&b, "Total: %s\n", cand.Total.StringFixed(2))
	fmt.Fprintf(&b, "Category: %s\n", orDash(cand.Category))
	fmt.Fprintf(&b, "Payment: %s\n", orDash(cand.PaymentMethod))
	b.WriteString("\nTap a field to change it, or Submit to record.")
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// candidateMarkup builds the inline keyboard attached to the card: one
// button per editable field plus the validate/submit/cancel row.
func candidateMarkup() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}

	var fieldRows []telebot.Row
	var row []telebot.Btn
	for _, field := range model.EditableFields {
		row = append(row, markup.Data(fieldLabels[field], actionEdit+":"+field))
		if len(row) == 3 {
			fieldRows = append(fieldRows, markup.Row(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		fieldRows = append(fieldRows, markup.Row(row...))
	}

	controls := markup.Row(
		markup.Data("Check date", actionValidate),
		markup.Data("Submit", actionSubmit),
		markup.Data("Cancel", actionCancel),
	)
	markup.Inline(append(fieldRows, controls)...)
	return markup
}

// pickListMarkup builds a value keyboard for category or payment-method
// edits; the sentinel is always offered last.
func pickListMarkup(field string, values []string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	var rows []telebot.Row
	var row []telebot.Btn
	for _, v := range append(append([]string{}, values...), model.Unknown) {
		row = append(row, markup.Data(v, actionPick+":"+field+":"+v))
		if len(row) == 2 {
			rows = append(rows, markup.Row(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, markup.Row(row...))
	}
	markup.Inline(rows...)
	return markup
}

// presentCandidate shows or refreshes the confirmation card. The first
// presentation sends a new message; later ones edit it in place.
func (r *Router) presentCandidate(chat *telebot.Chat, s *session.Session) {
	text := formatCandidate(s.Candidate)
	markup := candidateMarkup()

	if s.ControlID != 0 {
		if _, err := r.transport.Edit(storedMessage(chat.ID, s.ControlID), text, markup); err == nil {
			return
		}
		// The card may have been deleted by the user; fall through to a
		// fresh send.
	}
	sent, err := r.transport.Send(chat, text, markup)
	if err != nil {
		r.logger.Error("failed to present candidate", "chat_id", chat.ID, "error", err)
		return
	}
	s.ControlID = sent.ID
}

// send delivers a plain reply, logging delivery failures.
func (r *Router) send(chat *telebot.Chat, text string, opts ...any) *telebot.Message {
	sent, err := r.transport.Send(chat, text, opts...)
	if err != nil {
		r.logger.Error("failed to send message", "chat_id", chat.ID, "error", err)
		return nil
	}
	return sent
}

// bestEffortDelete removes a message that may already be gone.
func (r *Router) bestEffortDelete(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := r.transport.Delete(storedMessage(chatID, messageID)); err != nil {
		r.logger.Debug("best-effort delete failed", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func storedMessage(chatID int64, messageID int) telebot.Editable {
	return &telebot.StoredMessage{ChatID: chatID, MessageID: strconv.Itoa(messageID)}
}
