package notifications

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/b8oost/boost-service/pkg/logger"
)

// Sender delivers one message to an external channel. Implementations must
// be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// TelegramSender delivers messages through the Telegram Bot API.
type TelegramSender struct {
	api *tgbotapi.BotAPI
	log *logger.Logger
}

// NewTelegramSender authenticates against the Bot API with the given token.
func NewTelegramSender(token string, log *logger.Logger) (*TelegramSender, error) {
	if log == nil {
		log = logger.NewDefault("telegram")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.WithField("bot", api.Self.UserName).Info("telegram sender authorized")
	return &TelegramSender{api: api, log: log}, nil
}

// Send posts a plain text message to the chat.
func (t *TelegramSender) Send(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
