package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"tempgen/internal/session"

	"github.com/gin-gonic/gin"
)

type stubMail struct {
	address string
	err     error
}

func (s stubMail) CreateMailbox(ctx context.Context) (string, error) {
	return s.address, s.err
}

type stubNumbers struct {
	number string
	err    error
}

func (s stubNumbers) CountryNumber(ctx context.Context, countryID string) (string, error) {
	return s.number, s.err
}

type stubEngine struct {
	views        map[string]session.View
	startedEmail []string
	startedSMS   []string
	cancelled    []string
}

func (s *stubEngine) StartEmail(address string) {
	s.startedEmail = append(s.startedEmail, address)
}

func (s *stubEngine) StartSMS(countryID, number string) string {
	s.startedSMS = append(s.startedSMS, countryID+"/"+number)
	return "sms_" + countryID + "_" + number + "_1700000000"
}

func (s *stubEngine) Status(id string) (session.View, error) {
	view, ok := s.views[id]
	if !ok {
		return session.View{}, session.ErrSessionNotFound
	}
	return view, nil
}

func (s *stubEngine) Cancel(id string) error {
	if _, ok := s.views[id]; !ok {
		return session.ErrSessionNotFound
	}
	s.cancelled = append(s.cancelled, id)
	return nil
}

func newTestHandler(mail MailProvisioner, numbers NumberProvisioner, engine SessionEngine) http.Handler {
	gin.SetMode(gin.TestMode)
	s := &Server{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		mail:     mail,
		numbers:  numbers,
		sessions: engine,
	}
	return s.RegisterRoutes()
}

func doRequest(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body
}

func TestGenerateEmail(t *testing.T) {
	engine := &stubEngine{views: map[string]session.View{}}
	h := newTestHandler(stubMail{address: "tmp@example.com"}, stubNumbers{}, engine)

	w := doRequest(h, http.MethodGet, "/generate/email")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["temp_email"] != "tmp@example.com" {
		t.Errorf("Expected temp_email tmp@example.com, got %v", body["temp_email"])
	}
	if len(engine.startedEmail) != 1 || engine.startedEmail[0] != "tmp@example.com" {
		t.Errorf("Expected polling to start for tmp@example.com, got %v", engine.startedEmail)
	}
}

func TestGenerateEmailProvisioningFailure(t *testing.T) {
	engine := &stubEngine{views: map[string]session.View{}}
	h := newTestHandler(stubMail{err: errors.New("upstream down")}, stubNumbers{}, engine)

	w := doRequest(h, http.MethodGet, "/generate/email")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Failed to create temporary email" {
		t.Errorf("Unexpected error message: %v", body["error"])
	}
	if len(engine.startedEmail) != 0 {
		t.Errorf("No session should start on provisioning failure")
	}
}

func TestGetMessages(t *testing.T) {
	engine := &stubEngine{views: map[string]session.View{
		"tmp@example.com": {
			Status:  session.StatusReceived,
			From:    "a@b.com",
			Subject: "Hi",
			Body:    "Hello",
		},
	}}
	h := newTestHandler(stubMail{}, stubNumbers{}, engine)

	w := doRequest(h, http.MethodGet, "/get_messages/tmp@example.com")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "received" {
		t.Errorf("Expected status received, got %v", body["status"])
	}
	if body["from"] != "a@b.com" || body["subject"] != "Hi" || body["body"] != "Hello" {
		t.Errorf("Unexpected payload: %v", body)
	}
}

func TestGetMessagesUnknownID(t *testing.T) {
	engine := &stubEngine{views: map[string]session.View{}}
	h := newTestHandler(stubMail{}, stubNumbers{}, engine)

	w := doRequest(h, http.MethodGet, "/get_messages/missing@example.com")

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Email not found" {
		t.Errorf("Unexpected error message: %v", body["error"])
	}
}

func TestGenerateNumber(t *testing.T) {
	engine := &stubEngine{views: map[string]session.View{}}
	h := newTestHandler(stubMail{}, stubNumbers{number: "+79990001122"}, engine)

	w := doRequest(h, http.MethodGet, "/generate/number?country_id=7")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["virtual_phone"] != "+79990001122" {
		t.Errorf("Expected virtual_phone +79990001122, got %v", body["virtual_phone"])
	}
	if body["country_id"] != "7" {
		t.Errorf("Expected country_id 7, got %v", body["country_id"])
	}
	if body["session_id"] == "" {
		t.Error("Expected non-empty session_id")
	}
	if len(engine.startedSMS) != 1 || engine.startedSMS[0] != "7/+79990001122" {
		t.Errorf("Expected SMS polling to start, got %v", engine.startedSMS)
	}
}

func TestGenerateNumberDefaultCountry(t *testing.T) {
	engine := &stubEngine{views: map[string]session.View{}}
	h := newTestHandler(stubMail{}, stubNumbers{number: "+70000000001"}, engine)

	w := doRequest(h, http.MethodGet, "/generate/number")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["country_id"] != "7" {
		t.Errorf("Expected default country_id 7, got %v", body["country_id"])
	}
}

func TestGenerateNumberProvisioningFailure(t *testing.T) {
	engine := &stubEngine{views: map[string]session.View{}}
	h := newTestHandler(stubMail{}, stubNumbers{err: errors.New("no numbers")}, engine)

	w := doRequest(h, http.MethodGet, "/generate/number?country_id=999")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Could not generate virtual phone number" {
		t.Errorf("Unexpected error message: %v", body["error"])
	}
}

func TestCheckSMS(t *testing.T) {
	engine := &stubEngine{views: map[string]session.View{
		"sms_7_+79990001122_1700000000": {Status: session.StatusWaiting, Message: "Waiting for SMS..."},
	}}
	h := newTestHandler(stubMail{}, stubNumbers{}, engine)

	w := doRequest(h, http.MethodGet, "/check_sms/sms_7_+79990001122_1700000000")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "waiting" {
		t.Errorf("Expected status waiting, got %v", body["status"])
	}
}

func TestCheckSMSUnknownID(t *testing.T) {
	engine := &stubEngine{views: map[string]session.View{}}
	h := newTestHandler(stubMail{}, stubNumbers{}, engine)

	w := doRequest(h, http.MethodGet, "/check_sms/sms_7_x_0")

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Session not found" {
		t.Errorf("Unexpected error message: %v", body["error"])
	}
}

func TestCancel(t *testing.T) {
	engine := &stubEngine{views: map[string]session.View{
		"tmp@example.com": {Status: session.StatusWaiting},
	}}
	h := newTestHandler(stubMail{}, stubNumbers{}, engine)

	w := doRequest(h, http.MethodPost, "/cancel/tmp@example.com")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "cancelled" {
		t.Errorf("Expected status cancelled, got %v", body["status"])
	}
	if len(engine.cancelled) != 1 || engine.cancelled[0] != "tmp@example.com" {
		t.Errorf("Expected cancel to reach the engine, got %v", engine.cancelled)
	}
}

func TestCancelUnknownID(t *testing.T) {
	engine := &stubEngine{views: map[string]session.View{}}
	h := newTestHandler(stubMail{}, stubNumbers{}, engine)

	w := doRequest(h, http.MethodPost, "/cancel/ghost")

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Operation not found" {
		t.Errorf("Unexpected error message: %v", body["error"])
	}
}

func TestHealth(t *testing.T) {
	engine := &stubEngine{views: map[string]session.View{}}
	h := newTestHandler(stubMail{}, stubNumbers{}, engine)

	w := doRequest(h, http.MethodGet, "/health")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}
