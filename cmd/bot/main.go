package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"tempgen/internal/bot"
	"tempgen/internal/config"
	"tempgen/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	lgr := logger.New()
	lgr.Info("Starting TempGen bot...")

	cfg, err := config.LoadBot()
	if err != nil {
		lgr.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		lgr.Error("Failed to connect to Telegram", "error", err)
		os.Exit(1)
	}
	lgr.Info("Authorized on Telegram", "username", api.Self.UserName)

	client := bot.NewAPIClient(cfg.APIBaseURL)
	b := bot.New(api, client, lgr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lgr.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}

	lgr.Info("Bot stopped")
}
