package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tempgen/internal/config"
	"tempgen/internal/logger"
	"tempgen/internal/provider"
	"tempgen/internal/server"
	"tempgen/internal/session"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	lgr := logger.New()
	lgr.Info("Starting TempGen API server...")

	cfg, err := config.LoadServer()
	if err != nil {
		lgr.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	mail := provider.NewTempMail(cfg.TempMailHost, cfg.TempMailAPIKey, lgr)
	numbers := provider.NewVirtualNumber(cfg.VirtualNumberHost, cfg.VirtualNumAPIKey, lgr)

	store := session.NewMemoryStore()
	engine := session.NewEngine(store, mail, numbers, lgr)

	srv := server.New(cfg, lgr, mail, numbers, engine)

	go func() {
		lgr.Info("HTTP server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lgr.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lgr.Info("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lgr.Error("HTTP server forced to shutdown", "error", err)
	}

	lgr.Info("API server stopped")
}
