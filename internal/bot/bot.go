// ABOUTME: Telegram bot greeting new users and linking the mini-app
// ABOUTME: Long-polling /start handler built on github.com/go-telegram/bot

// Package bot runs the optional Telegram bot. It answers /start with a
// greeting and, when a mini-app URL is configured, an inline button opening
// the app inside Telegram.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Bot wraps the Telegram long-polling client.
type Bot struct {
	client     *bot.Bot
	miniAppURL string
	logger     *slog.Logger
}

// New creates the bot for the given token. An empty token returns (nil, nil):
// the bot is optional and the caller runs without it.
func New(token, miniAppURL string) (*Bot, error) {
	logger := slog.Default().With("component", "bot")

	if strings.TrimSpace(token) == "" {
		logger.Warn("telegram bot token is not configured, bot will not start")
		return nil, nil
	}

	b := &Bot{
		miniAppURL: strings.TrimSpace(miniAppURL),
		logger:     logger,
	}

	client, err := bot.New(strings.TrimSpace(token),
		bot.WithErrorsHandler(func(err error) {
			logger.Error("telegram polling error", "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	client.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)

	b.client = client
	return b, nil
}

// Run starts long polling and blocks until the context is canceled.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("telegram bot started")
	b.client.Start(ctx)
	b.logger.Info("telegram bot stopped")
}

// handleStart answers /start with a greeting and the mini-app button.
func (b *Bot) handleStart(ctx context.Context, client *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	params := &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   b.greeting(update.Message.From),
	}
	if b.miniAppURL != "" {
		params.ReplyMarkup = models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{
					Text:   "Открыть приложение",
					WebApp: &models.WebAppInfo{URL: b.miniAppURL},
				},
			}},
		}
	}

	if _, err := client.SendMessage(ctx, params); err != nil {
		b.logger.Error("failed to send greeting", "chat_id", update.Message.Chat.ID, "error", err)
	}
}

// greeting builds the /start reply, addressing the user by name when known.
func (b *Bot) greeting(from *models.User) string {
	intro := "Привет!"
	if from != nil {
		name := strings.TrimSpace(strings.TrimSpace(from.FirstName) + " " + strings.TrimSpace(from.LastName))
		if name != "" {
			intro = fmt.Sprintf("Привет, %s!", name)
		}
	}

	if b.miniAppURL != "" {
		return intro + "\n\nНажми кнопку ниже, чтобы открыть мини-приложение."
	}
	return intro + "\n\nМини-приложение временно недоступно. Обратитесь к администратору."
}
