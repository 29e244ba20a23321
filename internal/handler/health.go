package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	natsclient "github.com/capitalize-ai/event-assistant/internal/nats"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
)

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store      Pinger
	natsClient *natsclient.Client
	publisher  *natsclient.Publisher
	logger     *logger.Logger
}

// NewHealthHandler creates a health handler. natsClient and publisher are
// nil when event publishing is disabled.
func NewHealthHandler(store Pinger, natsClient *natsclient.Client, publisher *natsclient.Publisher, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:      store,
		natsClient: natsClient,
		publisher:  publisher,
		logger:     logger.OrNop(log),
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("store not reachable", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "store not reachable",
			})
			return
		}
	}

	if h.natsClient != nil {
		if !h.natsClient.IsConnected() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "NATS not connected",
			})
			return
		}
		if h.publisher != nil {
			if err := h.publisher.RefreshStats(ctx); err != nil {
				h.logger.Warn("failed to refresh stream stats", zap.Error(err))
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
