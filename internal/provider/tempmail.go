// Package provider wraps the two upstream RapidAPI services: the disposable
// mail provider and the virtual number provider. Every call is a single
// round trip with no retries; failures are surfaced to the caller.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUpstreamStatus is returned on any non-200 upstream response.
	ErrUpstreamStatus = errors.New("unexpected upstream status")
	// ErrNoNumbersAvailable is returned when the number provider has no
	// numbers for the requested country.
	ErrNoNumbersAvailable = errors.New("no numbers available")
	// ErrEmptyAddress is returned when mailbox creation succeeds without
	// an address in the response.
	ErrEmptyAddress = errors.New("upstream returned no email address")
)

// EmailMessage is one message in a temporary mailbox.
type EmailMessage struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	BodyText string `json:"body_text"`
	BodyHTML string `json:"body_html"`
}

// Body returns the best available message body.
func (m EmailMessage) Body() string {
	if m.BodyText != "" {
		return m.BodyText
	}
	if m.BodyHTML != "" {
		return m.BodyHTML
	}
	return "No content"
}

// TempMail is a client for the disposable mail provider.
type TempMail struct {
	baseURL string
	host    string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewTempMail creates a mail provider client. baseURL is the scheme+host of
// the upstream service; tests point it at a local server.
func NewTempMail(baseURL, apiKey string, logger *slog.Logger) *TempMail {
	return &TempMail{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		host:    hostOf(baseURL),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// CreateMailbox provisions a new disposable mailbox and returns its address.
func (t *TempMail) CreateMailbox(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/v3/email/new", nil)
	if err != nil {
		return "", fmt.Errorf("create mailbox request: %w", err)
	}
	t.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create mailbox: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.logger.Error("Failed to create mailbox", "status", resp.StatusCode)
		return "", fmt.Errorf("create mailbox: %w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode mailbox response: %w", err)
	}
	if body.Email == "" {
		return "", ErrEmptyAddress
	}

	t.logger.Info("Temporary email created", "address", body.Email)
	return body.Email, nil
}

// ListMessages returns the messages currently in the mailbox.
func (t *TempMail) ListMessages(ctx context.Context, address string) ([]EmailMessage, error) {
	u := fmt.Sprintf("%s/api/v3/email/%s/messages", t.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("list messages request: %w", err)
	}
	t.setHeaders(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list messages: %w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var msgs []EmailMessage
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}

func (t *TempMail) setHeaders(req *http.Request) {
	req.Header.Set("x-rapidapi-key", t.apiKey)
	req.Header.Set("x-rapidapi-host", t.host)
}

// hostOf extracts the bare host for the x-rapidapi-host header.
func hostOf(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return baseURL
}
