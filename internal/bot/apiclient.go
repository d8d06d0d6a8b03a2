// Package bot implements the Telegram front end. It drives the API server:
// provision an identity, poll the session status on a fixed cadence, render
// the outcome, and forward user-initiated cancellation.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the API server does not know the id.
var ErrNotFound = errors.New("not found")

// StatusResponse is the session view envelope returned by the API server.
type StatusResponse struct {
	Status   string `json:"status"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Messages []SMS  `json:"messages"`
	Message  string `json:"message"`
}

// SMS is one SMS record inside a status response.
type SMS struct {
	From string `json:"from"`
	Text string `json:"message"`
	Time string `json:"time"`
}

// APIClient is a thin typed client for the API server.
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient creates a client for the API server at baseURL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// GenerateEmail provisions a temporary mailbox and returns its address.
func (a *APIClient) GenerateEmail(ctx context.Context) (string, error) {
	var body struct {
		TempEmail string `json:"temp_email"`
	}
	if err := a.get(ctx, "/generate/email", &body); err != nil {
		return "", err
	}
	if body.TempEmail == "" {
		return "", errors.New("empty temp_email in response")
	}
	return body.TempEmail, nil
}

// GenerateNumber provisions a virtual number for the country and returns the
// number and its session id.
func (a *APIClient) GenerateNumber(ctx context.Context, countryID string) (number, sessionID string, err error) {
	var body struct {
		VirtualPhone string `json:"virtual_phone"`
		SessionID    string `json:"session_id"`
	}
	path := "/generate/number?country_id=" + url.QueryEscape(countryID)
	if err := a.get(ctx, path, &body); err != nil {
		return "", "", err
	}
	if body.SessionID == "" {
		return "", "", errors.New("empty session_id in response")
	}
	return body.VirtualPhone, body.SessionID, nil
}

// GetMessages queries the state of an email session.
func (a *APIClient) GetMessages(ctx context.Context, address string) (*StatusResponse, error) {
	var body StatusResponse
	if err := a.get(ctx, "/get_messages/"+url.PathEscape(address), &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// CheckSMS queries the state of an SMS session.
func (a *APIClient) CheckSMS(ctx context.Context, sessionID string) (*StatusResponse, error) {
	var body StatusResponse
	if err := a.get(ctx, "/check_sms/"+url.PathEscape(sessionID), &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Cancel asks the server to cancel the session with the given id.
func (a *APIClient) Cancel(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/cancel/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("cancel request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("cancel: unexpected status %d", resp.StatusCode)
	}
}

func (a *APIClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
