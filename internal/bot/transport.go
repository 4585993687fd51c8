// Package bot routes inbound Telegram updates through the expense intake
// state machine: authorization and group-scope gating, extraction, the
// inline edit/confirm flow, and the final ledger append.
package bot

import (
	"io"

	"gopkg.in/telebot.v3"
)

// Transport is the subset of outbound chat operations the router uses. The
// live implementation wraps *telebot.Bot; tests substitute a recorder.
type Transport interface {
	Send(to telebot.Recipient, what any, opts ...any) (*telebot.Message, error)
	Edit(msg telebot.Editable, what any, opts ...any) (*telebot.Message, error)
	Delete(msg telebot.Editable) error
	Respond(c *telebot.Callback, resp ...*telebot.CallbackResponse) error
	Notify(to telebot.Recipient, action telebot.ChatAction) error
	File(file *telebot.File) (io.ReadCloser, error)
	Username() string
}

type botTransport struct {
	bot *telebot.Bot
}

// NewTransport wraps a telebot instance in the Transport interface.
func NewTransport(b *telebot.Bot) Transport {
	return &botTransport{bot: b}
}

func (t *botTransport) Send(to telebot.Recipient, what any, opts ...any) (*telebot.Message, error) {
	return t.bot.Send(to, what, opts...)
}

func (t *botTransport) Edit(msg telebot.Editable, what any, opts ...any) (*telebot.Message, error) {
	return t.bot.Edit(msg, what, opts...)
}

func (t *botTransport) Delete(msg telebot.Editable) error {
	return t.bot.Delete(msg)
}

func (t *botTransport) Respond(c *telebot.Callback, resp ...*telebot.CallbackResponse) error {
	return t.bot.Respond(c, resp...)
}

func (t *botTransport) Notify(to telebot.Recipient, action telebot.ChatAction) error {
	return t.bot.Notify(to, action)
}

func (t *botTransport) File(file *telebot.File) (io.ReadCloser, error) {
	return t.bot.File(file)
}

func (t *botTransport) Username() string {
	if t.bot.Me == nil {
		return ""
	}
	return t.bot.Me.Username
}
