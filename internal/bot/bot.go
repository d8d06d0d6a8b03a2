package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const welcomeText = "👋 Welcome to *TempGen Bot*!\n\n" +
	"Use the commands below:\n" +
	"• /generate_email - Get a temp email\n" +
	"• /generate_phone - Get a temp phone number\n" +
	"• /cancel - Cancel current operation\n" +
	"• /help - Show this menu again"

// activeSession tracks the one operation a user may have in flight.
type activeSession struct {
	kind string // "email" or "sms"
	id   string
}

// Bot is the Telegram front-end orchestrator.
type Bot struct {
	api    *tgbotapi.BotAPI
	client *APIClient
	logger *slog.Logger

	pollInterval  time.Duration
	emailAttempts int
	smsAttempts   int

	mu              sync.Mutex
	active          map[int64]activeSession
	awaitingCountry map[int64]bool
}

// New creates the bot with the same client-side cadence the server uses:
// 10s between status queries, 90 attempts for email, 30 for SMS.
func New(api *tgbotapi.BotAPI, client *APIClient, logger *slog.Logger) *Bot {
	return &Bot{
		api:             api,
		client:          client,
		logger:          logger,
		pollInterval:    10 * time.Second,
		emailAttempts:   90,
		smsAttempts:     30,
		active:          make(map[int64]activeSession),
		awaitingCountry: make(map[int64]bool),
	}
}

// Run consumes Telegram updates until ctx is cancelled. Each message is
// handled in its own goroutine because the generate flows block while
// polling the API server.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked", "panic", r, "chat_id", msg.Chat.ID)
		}
	}()

	if msg.From == nil {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.replyMarkdown(msg.Chat.ID, welcomeText)
		case "generate_email":
			b.generateEmail(ctx, msg)
		case "generate_phone":
			b.generatePhoneStart(msg)
		case "cancel":
			b.cancel(ctx, msg)
		default:
			b.reply(msg.Chat.ID, "❓ Unknown command. Use /help to see what I can do.")
		}
		return
	}

	if b.isAwaitingCountry(msg.From.ID) {
		b.receiveCountryCode(ctx, msg)
	}
}

// ─────────────────────────────────────────────
// Email flow
// ─────────────────────────────────────────────

func (b *Bot) generateEmail(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	b.cancelPrevious(ctx, userID)

	b.reply(msg.Chat.ID, "🔍 Generating temporary email...")

	address, err := b.client.GenerateEmail(ctx)
	if err != nil {
		b.logger.Error("Email generation failed", "error", err, "user_id", userID)
		b.reply(msg.Chat.ID, "❌ Could not generate email.")
		return
	}

	b.setActive(userID, activeSession{kind: "email", id: address})
	b.replyMarkdown(msg.Chat.ID, fmt.Sprintf(
		"📧 Temporary Email created: `%s`\n\n"+
			"Waiting for incoming messages (15 mins max)...\n"+
			"Use /cancel to stop waiting.", address))

	for i := 0; i < b.emailAttempts; i++ {
		resp, err := b.client.GetMessages(ctx, address)
		if err != nil {
			// 404 or a malformed body: keep polling, never crash.
			b.logger.Warn("Status query failed", "address", address, "error", err)
		} else {
			switch resp.Status {
			case "received":
				b.reply(msg.Chat.ID, fmt.Sprintf(
					"💌 New Message Received!\n\nFrom: %s\nSubject: %s\n\n%s",
					resp.From, resp.Subject, resp.Body))
				b.clearActive(userID)
				return
			case "timeout":
				b.reply(msg.Chat.ID, "📭 No new messages arrived in 15 minutes. Try again later.")
				b.clearActive(userID)
				return
			case "error":
				b.reply(msg.Chat.ID, "⚠️ Error: "+orDefault(resp.Message, "Unknown error"))
				b.clearActive(userID)
				return
			case "cancelled":
				// Acknowledged by the cancel handler.
				return
			}
		}

		if !b.owns(userID, address) {
			return
		}
		if !sleep(ctx, b.pollInterval) {
			return
		}
	}

	b.reply(msg.Chat.ID, "📭 No new messages arrived in 15 minutes. Try again later.")
	b.clearActive(userID)
}

// ─────────────────────────────────────────────
// Phone flow
// ─────────────────────────────────────────────

func (b *Bot) generatePhoneStart(msg *tgbotapi.Message) {
	b.setAwaitingCountry(msg.From.ID, true)

	out := tgbotapi.NewMessage(msg.Chat.ID, "📍 Please select a country or enter a country code:")
	out.ReplyMarkup = countryKeyboard()
	b.send(out)
}

func (b *Bot) receiveCountryCode(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	if msg.Text == "Cancel" {
		b.setAwaitingCountry(userID, false)
		b.replyRemoveKeyboard(msg.Chat.ID, "❌ Operation cancelled.")
		return
	}

	countryID, err := ParseCountryCode(msg.Text)
	if err != nil {
		b.replyRemoveKeyboard(msg.Chat.ID, "⚠️ Please enter a valid country code (numbers only).")
		return
	}
	b.setAwaitingCountry(userID, false)

	b.cancelPrevious(ctx, userID)
	b.replyRemoveKeyboard(msg.Chat.ID, fmt.Sprintf(
		"🔍 Generating temporary phone number for country code %s...", countryID))

	number, sessionID, err := b.client.GenerateNumber(ctx, countryID)
	if err != nil {
		b.logger.Error("Number generation failed", "country_id", countryID, "error", err)
		b.reply(msg.Chat.ID, "❌ Failed to generate number.")
		return
	}

	b.setActive(userID, activeSession{kind: "sms", id: sessionID})
	b.replyMarkdown(msg.Chat.ID, fmt.Sprintf(
		"📱 Temporary Phone Number:\n`%s`\n\n"+
			"Waiting for incoming SMS... ⏳\n"+
			"Use /cancel to stop waiting.", number))

	for i := 0; i < b.smsAttempts; i++ {
		resp, err := b.client.CheckSMS(ctx, sessionID)
		if err != nil {
			b.logger.Warn("SMS status query failed", "session_id", sessionID, "error", err)
		} else {
			switch resp.Status {
			case "received":
				if len(resp.Messages) > 0 {
					first := resp.Messages[0]
					b.reply(msg.Chat.ID, fmt.Sprintf(
						"📩 New SMS Received!\n\nFrom: %s\nMessage: %s\nTime: %s",
						orDefault(first.From, "Unknown"),
						orDefault(first.Text, "No content"),
						orDefault(first.Time, "Unknown")))
					if extra := len(resp.Messages) - 1; extra > 0 {
						b.reply(msg.Chat.ID, fmt.Sprintf("➕ %d more messages received.", extra))
					}
				}
				b.clearActive(userID)
				return
			case "timeout":
				b.reply(msg.Chat.ID, "📭 No SMS received in 5 minutes. Try again later.")
				b.clearActive(userID)
				return
			case "error":
				b.reply(msg.Chat.ID, "⚠️ Error: "+orDefault(resp.Message, "Unknown error"))
				b.clearActive(userID)
				return
			case "cancelled":
				return
			}
		}

		if !b.owns(userID, sessionID) {
			return
		}
		if !sleep(ctx, b.pollInterval) {
			return
		}
	}

	b.reply(msg.Chat.ID, "📭 No SMS received in 5 minutes. Try again later.")
	b.clearActive(userID)
}

// ─────────────────────────────────────────────
// Cancellation
// ─────────────────────────────────────────────

func (b *Bot) cancel(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	if b.isAwaitingCountry(userID) {
		b.setAwaitingCountry(userID, false)
		b.replyRemoveKeyboard(msg.Chat.ID, "❌ Operation cancelled.")
		return
	}

	sess, ok := b.takeActive(userID)
	if !ok {
		b.reply(msg.Chat.ID, "❓ No active operation to cancel.")
		return
	}

	if err := b.client.Cancel(ctx, sess.id); err != nil && !errors.Is(err, ErrNotFound) {
		b.logger.Error("Cancel failed", "session_id", sess.id, "error", err)
	}
	if sess.kind == "email" {
		b.reply(msg.Chat.ID, "✅ Email monitoring cancelled.")
	} else {
		b.reply(msg.Chat.ID, "✅ SMS monitoring cancelled.")
	}
}

// cancelPrevious cancels any in-flight session for the user before starting
// a new flow, so one user never drives two poll loops at once.
func (b *Bot) cancelPrevious(ctx context.Context, userID int64) {
	sess, ok := b.takeActive(userID)
	if !ok {
		return
	}
	if err := b.client.Cancel(ctx, sess.id); err != nil && !errors.Is(err, ErrNotFound) {
		b.logger.Warn("Failed to cancel previous session", "session_id", sess.id, "error", err)
	}
}

// ─────────────────────────────────────────────
// Session bookkeeping
// ─────────────────────────────────────────────

func (b *Bot) setActive(userID int64, sess activeSession) {
	b.mu.Lock()
	b.active[userID] = sess
	b.mu.Unlock()
}

func (b *Bot) clearActive(userID int64) {
	b.mu.Lock()
	delete(b.active, userID)
	b.mu.Unlock()
}

func (b *Bot) takeActive(userID int64) (activeSession, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.active[userID]
	if ok {
		delete(b.active, userID)
	}
	return sess, ok
}

// owns reports whether the user's active session is still the given id.
func (b *Bot) owns(userID int64, id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.active[userID]
	return ok && sess.id == id
}

func (b *Bot) isAwaitingCountry(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.awaitingCountry[userID]
}

func (b *Bot) setAwaitingCountry(userID int64, v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v {
		b.awaitingCountry[userID] = true
	} else {
		delete(b.awaitingCountry, userID)
	}
}

// ─────────────────────────────────────────────
// Sending helpers
// ─────────────────────────────────────────────

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)
}

func (b *Bot) replyRemoveKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	b.send(msg)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Error("Failed to send message", "error", err)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// sleep waits d, returning false if ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
