package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 4*time.Hour, cfg.SessionTimeout)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, 10, cfg.SummaryThreshold)
	assert.Equal(t, "itens_pendentes_confirmacao", cfg.GeneratedStatus)
	assert.Equal(t, "heuristic", cfg.Strategy)
	assert.Equal(t, 2, cfg.MinLeadDays)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.NATSEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT", "30m")
	t.Setenv("HISTORY_LIMIT", "20")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("ORCHESTRATOR_STRATEGY", "planner")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MIN_LEAD_DAYS", "not-a-number")
	t.Setenv("ENV", "development")

	cfg := Load()
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 20, cfg.HistoryLimit)
	assert.True(t, cfg.NATSEnabled)
	assert.Equal(t, "planner", cfg.Strategy)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 2, cfg.MinLeadDays)
	assert.True(t, cfg.Development())
}
