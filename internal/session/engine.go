package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tempgen/internal/provider"
)

// ErrSessionNotFound is returned when a session id is unknown to the store.
var ErrSessionNotFound = errors.New("session not found")

// Timeout messages shown to status queries after the deadline.
const (
	emailTimeoutNote = "No messages received after 15 minutes"
	smsTimeoutNote   = "No SMS received after 5 minutes"
)

// EmailLister lists the messages currently in a temporary mailbox.
type EmailLister interface {
	ListMessages(ctx context.Context, address string) ([]provider.EmailMessage, error)
}

// SMSLister lists the SMS received by a virtual number.
type SMSLister interface {
	ViewMessages(ctx context.Context, countryID, number string) ([]provider.SMSMessage, error)
}

// Engine runs one background polling task per active session. Each task owns
// all writes to its session; Cancel performs the only external write and
// signals the task through its context, observed at the next loop boundary.
type Engine struct {
	store  Store
	email  EmailLister
	sms    SMSLister
	logger *slog.Logger

	interval        time.Duration
	emailIterations int
	smsIterations   int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewEngine creates an engine with production cadence: 10s polling interval,
// 90 iterations (15 min) for email and 30 iterations (5 min) for SMS.
func NewEngine(store Store, email EmailLister, sms SMSLister, logger *slog.Logger) *Engine {
	return &Engine{
		store:           store,
		email:           email,
		sms:             sms,
		logger:          logger,
		interval:        10 * time.Second,
		emailIterations: 90,
		smsIterations:   30,
		cancels:         make(map[string]context.CancelFunc),
	}
}

// StartEmail registers a pending session for the given mailbox address and
// launches its polling task. The address itself is the session id.
func (e *Engine) StartEmail(address string) {
	now := time.Now()
	e.store.Put(&Session{
		ID:        address,
		Kind:      KindEmail,
		Status:    StatusPending,
		Note:      "Waiting for emails...",
		Address:   address,
		CreatedAt: now,
		Deadline:  now.Add(time.Duration(e.emailIterations) * e.interval),
	})

	ctx := e.register(address)
	go e.pollEmail(ctx, address)
}

// StartSMS registers a pending session for the given number and launches its
// polling task. The returned id is synthetic so repeated requests for the
// same number stay distinct.
func (e *Engine) StartSMS(countryID, number string) string {
	now := time.Now()
	id := fmt.Sprintf("sms_%s_%s_%d", countryID, number, now.Unix())
	e.store.Put(&Session{
		ID:        id,
		Kind:      KindSMS,
		Status:    StatusPending,
		Note:      "Waiting for SMS...",
		CountryID: countryID,
		Number:    number,
		CreatedAt: now,
		Deadline:  now.Add(time.Duration(e.smsIterations) * e.interval),
	})

	ctx := e.register(id)
	go e.pollSMS(ctx, id, countryID, number)
	return id
}

// Status returns the current view of a session. Pure in-memory read; never
// triggers an upstream call.
func (e *Engine) Status(id string) (View, error) {
	sess, ok := e.store.Get(id)
	if !ok {
		return View{}, ErrSessionNotFound
	}
	return sess.View(), nil
}

// Cancel marks the session cancelled and signals its background task.
// Cancellation is cooperative: the task may complete one more in-flight
// upstream call before observing it. Cancelling an already-terminal session
// succeeds without changing its state; an unknown id is ErrSessionNotFound.
func (e *Engine) Cancel(id string) error {
	if _, ok := e.store.Get(id); !ok {
		return ErrSessionNotFound
	}

	e.finish(id, func(s *Session) {
		s.Status = StatusCancelled
		s.Note = "Operation was cancelled by user"
	})

	e.mu.Lock()
	if cancel, ok := e.cancels[id]; ok {
		cancel()
	}
	e.mu.Unlock()
	return nil
}

// register creates the cancellation context owned by a session's task.
func (e *Engine) register(id string) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancels[id] = cancel
	e.mu.Unlock()
	return ctx
}

// release frees the session's cancellation context once its task returns.
func (e *Engine) release(id string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[id]; ok {
		cancel()
		delete(e.cancels, id)
	}
	e.mu.Unlock()
}

func (e *Engine) pollEmail(ctx context.Context, address string) {
	defer e.release(address)

	if !e.begin(address) {
		return
	}

	// Ids already reacted to within this session. The task returns on the
	// first result, so this only matters if the loop is ever changed to
	// keep going after one.
	seen := make(map[string]struct{})

	for i := 0; i < e.emailIterations; i++ {
		if ctx.Err() != nil {
			e.logger.Info("Email polling cancelled", "address", address)
			return
		}

		msgs, err := e.email.ListMessages(ctx, address)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, provider.ErrUpstreamStatus):
			// Non-200 from upstream: skip this iteration, try again.
		case err != nil:
			e.fail(address, err)
			return
		default:
			for _, msg := range msgs {
				if _, ok := seen[msg.ID]; ok {
					continue
				}
				seen[msg.ID] = struct{}{}

				result := &EmailResult{
					From:    msg.From,
					Subject: msg.Subject,
					Body:    msg.Body(),
				}
				if e.finish(address, func(s *Session) {
					s.Status = StatusReceived
					s.Note = ""
					s.Email = result
				}) {
					e.logger.Info("New message received", "address", address, "message_id", msg.ID)
				}
				return
			}
		}

		if !e.sleep(ctx) {
			e.logger.Info("Email polling cancelled", "address", address)
			return
		}
	}

	e.finish(address, func(s *Session) {
		s.Status = StatusTimeout
		s.Note = emailTimeoutNote
	})
}

func (e *Engine) pollSMS(ctx context.Context, id, countryID, number string) {
	defer e.release(id)

	if !e.begin(id) {
		return
	}

	for i := 0; i < e.smsIterations; i++ {
		if ctx.Err() != nil {
			e.logger.Info("SMS polling cancelled", "number", number)
			return
		}

		msgs, err := e.sms.ViewMessages(ctx, countryID, number)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, provider.ErrUpstreamStatus):
			// Non-200 from upstream: skip this iteration, try again.
		case err != nil:
			e.fail(id, err)
			return
		default:
			// SMS records carry no id, so the first non-empty response
			// is terminal.
			if len(msgs) > 0 {
				if e.finish(id, func(s *Session) {
					s.Status = StatusReceived
					s.Note = ""
					s.SMS = msgs
				}) {
					e.logger.Info("SMS received", "number", number, "count", len(msgs))
				}
				return
			}
		}

		if !e.sleep(ctx) {
			e.logger.Info("SMS polling cancelled", "number", number)
			return
		}
	}

	e.finish(id, func(s *Session) {
		s.Status = StatusTimeout
		s.Note = smsTimeoutNote
	})
}

// begin moves the session from pending to waiting. Declines if the session
// was cancelled before the task got scheduled.
func (e *Engine) begin(id string) bool {
	return e.store.Update(id, func(s *Session) bool {
		if s.Status != StatusPending {
			return false
		}
		s.Status = StatusWaiting
		return true
	})
}

// finish applies a terminal transition unless one already happened.
// This is the write-once guard: a task that lost the race with Cancel (or
// with its own earlier transition) must not overwrite the terminal state.
func (e *Engine) finish(id string, fn func(*Session)) bool {
	return e.store.Update(id, func(s *Session) bool {
		if s.Status.Terminal() {
			return false
		}
		fn(s)
		return true
	})
}

func (e *Engine) fail(id string, err error) {
	e.logger.Error("Polling failed", "session_id", id, "error", err)
	e.finish(id, func(s *Session) {
		s.Status = StatusError
		s.Note = err.Error()
	})
}

// sleep waits one polling interval, returning false if cancelled first.
func (e *Engine) sleep(ctx context.Context) bool {
	t := time.NewTimer(e.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
