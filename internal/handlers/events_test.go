package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SIMPLIKARG/TESTING/internal/dialog"
)

type stubEngine struct {
	got   []dialog.Event
	reply dialog.Directive
	err   error
}

func (s *stubEngine) Handle(_ context.Context, ev dialog.Event) (dialog.Directive, error) {
	s.got = append(s.got, ev)
	return s.reply, s.err
}

func postEvent(t *testing.T, h *EventHandlers, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(WithEventRoutes(h.Routes))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rr, req)
	return rr
}

func TestEventHandlerDispatches(t *testing.T) {
	engine := &stubEngine{reply: dialog.Directive{
		Text:    "¿Cuántas unidades?",
		Buttons: [][]dialog.Button{{{Text: "x1", Token: "qty|7|1"}}},
	}}
	h := NewEventHandlers(engine)

	rr := postEvent(t, h, `{"userId":42,"kind":"Button","payload":"prod|7"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Len(t, engine.got, 1)
	assert.Equal(t, dialog.Event{UserID: 42, Kind: dialog.KindButton, Payload: "prod|7"}, engine.got[0])

	var body dialog.Directive
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, engine.reply, body)
}

func TestEventHandlerValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"invalid json", "{", http.StatusBadRequest},
		{"missing user", `{"kind":"text","payload":"hola"}`, http.StatusBadRequest},
		{"unknown kind", `{"userId":1,"kind":"sticker","payload":"x"}`, http.StatusBadRequest},
		{"button without token", `{"userId":1,"kind":"button","payload":" "}`, http.StatusBadRequest},
		{"too large", `{"userId":1,"kind":"text","payload":"` + strings.Repeat("a", maxEventBodySize) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &stubEngine{}
			rr := postEvent(t, NewEventHandlers(engine), tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Empty(t, engine.got)
		})
	}
}

func TestEventHandlerEngineFailure(t *testing.T) {
	engine := &stubEngine{err: errors.New("session store down")}
	rr := postEvent(t, NewEventHandlers(engine), `{"userId":7,"kind":"text","payload":"hola"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "session_unavailable", body["error"])
}

func TestEventHandlerRateLimit(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	engine := &stubEngine{}
	h := NewEventHandlers(engine, WithEventRateLimit(2, time.Minute, clock))

	for i := range 2 {
		rr := postEvent(t, h, `{"userId":9,"kind":"command","payload":"/start"}`)
		require.Equal(t, http.StatusOK, rr.Code, "event %d", i)
	}
	now = now.Add(15 * time.Second)
	rr := postEvent(t, h, `{"userId":9,"kind":"command","payload":"/start"}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "45", rr.Header().Get("Retry-After"))

	rr = postEvent(t, h, `{"userId":10,"kind":"command","payload":"/start"}`)
	assert.Equal(t, http.StatusOK, rr.Code, "other users keep their own budget")

	now = now.Add(2 * time.Minute)
	rr = postEvent(t, h, `{"userId":9,"kind":"command","payload":"/start"}`)
	assert.Equal(t, http.StatusOK, rr.Code, "budget resets after the window")
}
