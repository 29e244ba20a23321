package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-assistant/internal/middleware"
	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/orchestrator"
	"github.com/capitalize-ai/event-assistant/internal/service"
	"github.com/capitalize-ai/event-assistant/internal/session"
	"github.com/capitalize-ai/event-assistant/internal/store/memory"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
)

func newRouter() http.Handler {
	st := memory.New()
	sess := session.NewManager(st, st, session.Config{}, logger.Nop())
	orch := orchestrator.New(orchestrator.Config{}, orchestrator.Deps{Repo: st, Sessions: sess, Log: logger.Nop()})
	h := NewChatHandler(service.NewChatService(orch, sess, st, logger.Nop()), logger.Nop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), r.Header.Get("X-Test-User"))))
		})
	})
	r.Post("/chat", h.Chat)
	r.Get("/context", h.GetContext)
	r.Delete("/context", h.DeleteContext)
	r.Delete("/history", h.DeleteHistory)
	r.Get("/events", h.ListEvents)
	r.Get("/events/name-availability", h.NameAvailability)
	return r
}

func call(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-Test-User", "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	h := newRouter()

	rec := call(t, h, http.MethodPost, "/chat", `{"message":"Churrasco para 20 pessoas"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var reply orchestrator.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, orchestrator.BranchAskDate, reply.Branch)
	assert.Equal(t, model.StateCollectingCore, reply.State)
	assert.NotEmpty(t, reply.EventID)

	rec = call(t, h, http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events model.ListEventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Equal(t, 1, events.Total)

	rec = call(t, h, http.MethodPost, "/chat", `{"action":"list_events"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, orchestrator.BranchListEvents, reply.Branch)
	assert.Len(t, reply.Events, 1)
}

func TestChatBadRequests(t *testing.T) {
	h := newRouter()

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"message":`},
		{"empty", `{"message":""}`},
		{"unknown action", `{"action":"dance"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h, http.MethodPost, "/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestContextEndpoints(t *testing.T) {
	h := newRouter()
	call(t, h, http.MethodPost, "/chat", `{"message":"oi"}`)

	rec := call(t, h, http.MethodGet, "/context", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.ContextResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.History, 2)

	rec = call(t, h, http.MethodDelete, "/history", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = call(t, h, http.MethodGet, "/context", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.History)

	rec = call(t, h, http.MethodDelete, "/context", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNameAvailabilityEndpoint(t *testing.T) {
	h := newRouter()

	rec := call(t, h, http.MethodGet, "/events/name-availability", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h, http.MethodGet, "/events/name-availability?name=Festa", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.AvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Available)
	assert.False(t, resp.Stale)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestReady(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(pinger{}, nil, nil, nil).Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(pinger{err: errors.New("down")}, nil, nil, nil).Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "store not reachable")
}
