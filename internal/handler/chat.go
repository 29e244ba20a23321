// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/event-assistant/internal/middleware"
	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/service"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
)

// ChatHandler serves the conversation endpoints.
type ChatHandler struct {
	service *service.ChatService
	logger  *logger.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(svc *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{service: svc, logger: logger.OrNop(log)}
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.service.Chat(ctx, middleware.GetUserID(ctx), &req)
	if err != nil {
		h.fail(w, r, "chat turn failed", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// GetContext handles GET /api/v1/context
func (h *ChatHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp, err := h.service.Context(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.fail(w, r, "failed to load context", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteContext handles DELETE /api/v1/context
func (h *ChatHandler) DeleteContext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.ClearContext(ctx, middleware.GetUserID(ctx)); err != nil {
		h.fail(w, r, "failed to clear context", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteHistory handles DELETE /api/v1/history
func (h *ChatHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.ClearHistory(ctx, middleware.GetUserID(ctx)); err != nil {
		h.fail(w, r, "failed to clear history", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents handles GET /api/v1/events
func (h *ChatHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp, err := h.service.ListEvents(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.fail(w, r, "failed to list events", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// NameAvailability handles GET /api/v1/events/name-availability?name=
func (h *ChatHandler) NameAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp, err := h.service.NameAvailability(ctx, middleware.GetUserID(ctx), r.URL.Query().Get("name"))
	if err != nil {
		h.fail(w, r, "name availability check failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// fail maps service errors to responses. Invalid input is echoed back;
// anything else is logged and hidden.
func (h *ChatHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, service.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.FromContext(r.Context(), h.logger).WithTurn(middleware.GetUserID(r.Context()), "").
		Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, msg)
}
