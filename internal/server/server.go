// Package server exposes the HTTP API: identity provisioning, session status
// queries, and cancellation.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tempgen/internal/config"
	"tempgen/internal/session"
)

// MailProvisioner acquires a new disposable mailbox.
type MailProvisioner interface {
	CreateMailbox(ctx context.Context) (string, error)
}

// NumberProvisioner acquires a virtual number for a country.
type NumberProvisioner interface {
	CountryNumber(ctx context.Context, countryID string) (string, error)
}

// SessionEngine is the polling engine surface the handlers drive.
type SessionEngine interface {
	StartEmail(address string)
	StartSMS(countryID, number string) string
	Status(id string) (session.View, error)
	Cancel(id string) error
}

// Server holds the dependencies for the HTTP handlers.
type Server struct {
	logger   *slog.Logger
	mail     MailProvisioner
	numbers  NumberProvisioner
	sessions SessionEngine
}

// New wires the handlers and returns a configured http.Server.
func New(cfg *config.Server, logger *slog.Logger, mail MailProvisioner, numbers NumberProvisioner, sessions SessionEngine) *http.Server {
	s := &Server{
		logger:   logger,
		mail:     mail,
		numbers:  numbers,
		sessions: sessions,
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           s.RegisterRoutes(),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
