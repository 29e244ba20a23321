package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{Logger: zap.New(core)}, logs
}

func TestWithTurn(t *testing.T) {
	l, logs := observed()

	l.WithTurn("u1", "").Info("no event")
	l.WithTurn("u1", "e1").Info("with event")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"user_id": "u1"}, entries[0].ContextMap())
	assert.Equal(t, map[string]interface{}{"user_id": "u1", "event_id": "e1"}, entries[1].ContextMap())
}

func TestFromContext(t *testing.T) {
	fallback, fallbackLogs := observed()
	scoped, scopedLogs := observed()

	FromContext(context.Background(), fallback).Info("a")
	FromContext(IntoContext(context.Background(), scoped), fallback).Info("b")
	FromContext(context.Background(), nil).Info("dropped")

	assert.Equal(t, 1, fallbackLogs.Len())
	assert.Equal(t, 1, scopedLogs.Len())
	assert.Equal(t, "b", scopedLogs.All()[0].Message)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
