package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SIMPLIKARG/TESTING/internal/dialog"
	"github.com/SIMPLIKARG/TESTING/internal/platform/httpx"
	"github.com/SIMPLIKARG/TESTING/internal/platform/observability"
	"github.com/SIMPLIKARG/TESTING/internal/platform/requestctx"
)

const (
	maxEventBodySize   = 8 * 1024
	maxEventPayloadLen = 4096
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is empty")
)

// EventDispatcher applies one dialog event and returns the reply.
type EventDispatcher interface {
	Handle(ctx context.Context, ev dialog.Event) (dialog.Directive, error)
}

// EventHandlers exposes the dialog engine over HTTP.
type EventHandlers struct {
	engine  EventDispatcher
	limiter *userRateLimiter
}

// EventOption customises EventHandlers.
type EventOption func(*EventHandlers)

// WithEventRateLimit caps events per user within window. A non-positive limit disables it.
func WithEventRateLimit(limit int, window time.Duration, clock func() time.Time) EventOption {
	return func(h *EventHandlers) {
		h.limiter = newUserRateLimiter(limit, window, clock)
	}
}

// NewEventHandlers constructs the event handler set.
func NewEventHandlers(engine EventDispatcher, opts ...EventOption) *EventHandlers {
	h := &EventHandlers{engine: engine}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers POST /events.
func (h *EventHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/events", h.handleEvent)
}

type eventRequest struct {
	UserID  int64  `json:"userId"`
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

func (h *EventHandlers) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.engine == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "dialog engine not available", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxEventBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		case errors.Is(err, errEmptyBody):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return
	}

	var req eventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	if ok, retryAfter := h.limiter.Allow(ev.UserID); !ok {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many events, slow down", http.StatusTooManyRequests).WithRetryAfter(retryAfter))
		return
	}

	ctx = requestctx.WithUserID(ctx, ev.UserID)
	directive, err := h.engine.Handle(ctx, ev)
	if err != nil {
		observability.FromContext(ctx).Error("dialog event failed",
			zap.Int64("userId", ev.UserID),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
		httpx.WriteError(ctx, w, httpx.NewError("session_unavailable", "could not process the event, try again", http.StatusServiceUnavailable))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, directive)
}

func (req eventRequest) toEvent() (dialog.Event, error) {
	if req.UserID <= 0 {
		return dialog.Event{}, errors.New("userId must be a positive integer")
	}
	kind := dialog.Kind(strings.ToLower(strings.TrimSpace(req.Kind)))
	switch kind {
	case dialog.KindCommand, dialog.KindButton, dialog.KindText:
	default:
		return dialog.Event{}, errors.New("kind must be one of command, button, text")
	}
	if kind != dialog.KindText && strings.TrimSpace(req.Payload) == "" {
		return dialog.Event{}, errors.New("payload is required")
	}
	if utf8.RuneCountInString(req.Payload) > maxEventPayloadLen {
		return dialog.Event{}, errors.New("payload is too long")
	}
	return dialog.Event{UserID: req.UserID, Kind: kind, Payload: req.Payload}, nil
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}
