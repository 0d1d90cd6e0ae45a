// Package notify delivers operational alerts raised by the monitors. The
// Telegram notifier is the production channel; Log stands in when no channel
// is configured so alerts surface in the service log instead of vanishing.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const defaultHTTPTimeout = 15 * time.Second

// Telegram sends alerts to a single chat via the Bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

type telegramConfig struct {
	endpoint string
	client   tgbotapi.HTTPClient
}

// TelegramOption customises the Telegram notifier.
type TelegramOption func(*telegramConfig)

// WithEndpoint overrides the Bot API endpoint template.
func WithEndpoint(endpoint string) TelegramOption {
	return func(cfg *telegramConfig) {
		if endpoint != "" {
			cfg.endpoint = endpoint
		}
	}
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(client tgbotapi.HTTPClient) TelegramOption {
	return func(cfg *telegramConfig) {
		if client != nil {
			cfg.client = client
		}
	}
}

// NewTelegram constructs a Telegram notifier for the given bot token and chat.
func NewTelegram(token string, chatID int64, opts ...TelegramOption) (*Telegram, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("notify: telegram token required")
	}
	if chatID == 0 {
		return nil, errors.New("notify: telegram chat id required")
	}
	cfg := &telegramConfig{
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, cfg.endpoint, cfg.client)
	if err != nil {
		return nil, fmt.Errorf("notify: init telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Notify sends subject and body as one Markdown message.
func (t *Telegram) Notify(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("*%s*\n\n%s", subject, body))
	msg.ParseMode = "Markdown"
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("notify: telegram send: %w", err)
	}
	return nil
}
