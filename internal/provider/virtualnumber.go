package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSMessage is one SMS received by a virtual number. The upstream records
// carry no id field.
type SMSMessage struct {
	From string `json:"from"`
	Text string `json:"message"`
	Time string `json:"time"`
}

// VirtualNumber is a client for the virtual number provider.
type VirtualNumber struct {
	baseURL string
	host    string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewVirtualNumber creates a number provider client.
func NewVirtualNumber(baseURL, apiKey string, logger *slog.Logger) *VirtualNumber {
	return &VirtualNumber{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		host:    hostOf(baseURL),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// CountryNumber returns the first available number for the given country.
// An empty or malformed listing is ErrNoNumbersAvailable; a non-200 response
// is ErrUpstreamStatus.
func (v *VirtualNumber) CountryNumber(ctx context.Context, countryID string) (string, error) {
	u := fmt.Sprintf("%s/api/v1/e-sim/country-numbers?countryId=%s", v.baseURL, url.QueryEscape(countryID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("country numbers request: %w", err)
	}
	v.setHeaders(req)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("country numbers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Error("Failed to fetch numbers", "country_id", countryID, "status", resp.StatusCode)
		return "", fmt.Errorf("country numbers: %w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var numbers []string
	if err := json.NewDecoder(resp.Body).Decode(&numbers); err != nil {
		v.logger.Error("Malformed numbers listing", "country_id", countryID, "error", err)
		return "", ErrNoNumbersAvailable
	}
	if len(numbers) == 0 {
		return "", ErrNoNumbersAvailable
	}

	// First entry, deterministically.
	return numbers[0], nil
}

// ViewMessages returns the SMS received so far by the given number.
func (v *VirtualNumber) ViewMessages(ctx context.Context, countryID, number string) ([]SMSMessage, error) {
	u := fmt.Sprintf("%s/api/v1/e-sim/view-messages?countryId=%s&number=%s",
		v.baseURL, url.QueryEscape(countryID), url.QueryEscape(number))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("view messages request: %w", err)
	}
	v.setHeaders(req)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("view messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("view messages: %w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var msgs []SMSMessage
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decode sms: %w", err)
	}
	return msgs, nil
}

func (v *VirtualNumber) setHeaders(req *http.Request) {
	req.Header.Set("x-rapidapi-key", v.apiKey)
	req.Header.Set("x-rapidapi-host", v.host)
}
