// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"birthday_notification_bot/internal/domain/messaging"

	"gopkg.in/telebot.v3"
)

const codeAPI = "API"

// botAPI is the part of *telebot.Bot the transport uses.
type botAPI interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Raw(method string, payload interface{}) ([]byte, error)
}

// TelebotAdapter implements messaging.Transport using the gopkg.in/telebot.v3 library.
// Destinations are numeric chat IDs.
type TelebotAdapter struct {
	bot botAPI
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

func (tba *TelebotAdapter) Name() string { return "telegram" }

// Send delivers text to the chat. telebot calls are not cancellable, so ctx is only checked before sending.
func (tba *TelebotAdapter) Send(ctx context.Context, destination, text string) (messaging.Receipt, error) {
	chatID, err := strconv.ParseInt(strings.TrimSpace(destination), 10, 64)
	if err != nil {
		return messaging.Receipt{}, &messaging.TransportError{Code: "INVALID_DESTINATION", Message: fmt.Sprintf("%q is not a chat id", destination), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return messaging.Receipt{}, &messaging.TransportError{Code: messaging.CodeNetwork, Message: "send cancelled", Err: err}
	}

	msg, err := tba.bot.Send(telebot.ChatID(chatID), text, &telebot.SendOptions{DisableWebPagePreview: true})
	if err != nil {
		return messaging.Receipt{}, transportError(err)
	}
	return messaging.Receipt{ID: strconv.Itoa(msg.ID), Status: "sent"}, nil
}

// Ping calls getMe, which fails on a revoked token.
func (tba *TelebotAdapter) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := tba.bot.Raw("getMe", nil); err != nil {
		return transportError(err)
	}
	return nil
}

func transportError(err error) *messaging.TransportError {
	var flood telebot.FloodError
	if errors.As(err, &flood) {
		return &messaging.TransportError{Code: "429", Message: fmt.Sprintf("flood limit, retry after %ds", flood.RetryAfter), Err: err}
	}
	var apiErr *telebot.Error
	if errors.As(err, &apiErr) {
		return &messaging.TransportError{Code: strconv.Itoa(apiErr.Code), Message: apiErr.Description, Err: err}
	}
	// telebot reports API errors it has no type for as "telegram: <description> (<code>)".
	if strings.HasPrefix(err.Error(), "telegram: ") {
		return &messaging.TransportError{Code: codeAPI, Message: strings.TrimPrefix(err.Error(), "telegram: "), Err: err}
	}
	return &messaging.TransportError{Code: messaging.CodeNetwork, Message: err.Error(), Err: err}
}
