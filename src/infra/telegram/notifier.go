package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends run summaries to a single Telegram chat.
type Notifier struct {
	token    string
	chatID   int64
	endpoint string
	client   *http.Client
}

// NewNotifier creates a notifier for the bot token and chat. The bot is only
// contacted when a message is sent.
func NewNotifier(token string, chatID int64) *Notifier {
	return &Notifier{
		token:    token,
		chatID:   chatID,
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Notify sends text as a plain message.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := tgbotapi.NewBotAPIWithClient(n.token, n.endpoint, n.client)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	slog.Debug("Sent telegram notification", "bot", bot.Self.UserName, "chatID", n.chatID)
	return nil
}
