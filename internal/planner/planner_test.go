package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-assistant/internal/llm"
	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
)

type fakeCompleter struct {
	content string
	err     error
	last    *llm.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content}, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)
}

func TestValidate(t *testing.T) {
	env, err := Validate("```json\n{\"intent\": \"create_event\", \"payload\": {\"event_type\": \"churrasco\", \"headcount\": 20, \"date\": \"2026-10-17\", \"exclude_alcohol\": true}}\n```")
	require.NoError(t, err)
	assert.Equal(t, IntentCreateEvent, env.Intent)
	assert.Equal(t, "churrasco", env.Payload.EventType)
	assert.Equal(t, 20, env.Payload.Headcount)
	assert.Equal(t, "2026-10-17", env.Payload.Date)
	require.NotNil(t, env.Payload.ExcludeAlcohol)
	assert.True(t, *env.Payload.ExcludeAlcohol)

	env, err = Validate(`{"intent": "confirm_event"}`)
	require.NoError(t, err)
	assert.Equal(t, IntentConfirmEvent, env.Intent)
}

func TestValidate_Violations(t *testing.T) {
	bad := []string{
		"",
		"claro, vou criar o evento",
		`{"intent": "book_flight", "payload": {}}`,
		`{"payload": {"event_type": "festa"}}`,
		`{"intent": "create_event", "payload": {"event_type": "festa", "budget": 100}}`,
		`{"intent": "create_event", "payload": {"headcount": "vinte"}}`,
		`{"intent": "create_event", "payload": {"headcount": -3, "event_type": "festa"}}`,
		`{"intent": "create_event", "payload": {"event_type": "festa", "date": "17/10/2026"}}`,
		`{"intent": "create_event", "payload": {}}`,
		`{"intent": "edit_items", "payload": {}}`,
		`{"intent": "chitchat", "payload": {"message": "  "}}`,
		`{"intent": "ask_info", "payload": {"message": "Quantas pessoas?", "missing_slots": ["budget"]}}`,
		`{"intent": "chitchat", "payload": {"message": "oi"}, "confidence": 0.9}`,
	}
	for _, raw := range bad {
		env, err := Validate(raw)
		assert.ErrorIs(t, err, ErrSchemaViolation, raw)
		assert.Nil(t, env, raw)
	}
}

func TestSniff(t *testing.T) {
	env, ok := Sniff(`Perfeito, vamos lá! {"intent": "ask_info", "payload": {"message": "Para quantas pessoas?", "missing_slots": ["headcount"]}}`)
	require.True(t, ok)
	assert.Equal(t, IntentAskInfo, env.Intent)

	_, ok = Sniff("Oi! Como posso ajudar?")
	assert.False(t, ok)
}

func TestPlan(t *testing.T) {
	fc := &fakeCompleter{content: `{"intent": "update_event", "payload": {"headcount": 30}}`}
	p := New(fc, logger.Nop(), fixedNow)

	date := "2026-10-17"
	env, err := p.Plan(context.Background(), "na verdade vão ser 30", PlanContext{
		Event:     &model.Event{ID: "ev-1", Type: "churrasco", Headcount: 20, Date: &date, Status: model.EventStatusPendingItems},
		Collected: model.CollectedData{EventType: "churrasco", Headcount: 20, Date: date},
	})
	require.NoError(t, err)
	assert.Equal(t, IntentUpdateEvent, env.Intent)
	assert.Equal(t, 30, env.Payload.Headcount)

	assert.Equal(t, PlanTemperature, fc.last.Temperature)
	assert.Contains(t, fc.last.System, "Hoje é 2026-10-14 (quarta-feira)")
	assert.Contains(t, fc.last.System, "id=ev-1")
	assert.Contains(t, fc.last.System, "status=itens_pendentes_confirmacao")
	require.Len(t, fc.last.Messages, 1)
	assert.Equal(t, "na verdade vão ser 30", fc.last.Messages[0].Content)
}

func TestPlan_Failures(t *testing.T) {
	_, err := New(&fakeCompleter{content: "não sei"}, logger.Nop(), fixedNow).Plan(context.Background(), "oi", PlanContext{})
	assert.ErrorIs(t, err, ErrSchemaViolation)

	boom := errors.New("connection refused")
	_, err = New(&fakeCompleter{err: boom}, logger.Nop(), fixedNow).Plan(context.Background(), "oi", PlanContext{})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrSchemaViolation)

	_, err = New(nil, nil, nil).Plan(context.Background(), "oi", PlanContext{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestChat(t *testing.T) {
	fc := &fakeCompleter{content: "Que legal! Para quantas pessoas?\n{\"intent\": \"ask_info\", \"payload\": {\"message\": \"Para quantas pessoas?\"}}"}
	reply, err := New(fc, logger.Nop(), fixedNow).Chat(context.Background(), "quero fazer um churrasco", PlanContext{})
	require.NoError(t, err)

	assert.Equal(t, ChatTemperature, fc.last.Temperature)
	assert.Equal(t, "Que legal! Para quantas pessoas?", reply.Text)
	require.NotNil(t, reply.Envelope)
	assert.Equal(t, IntentAskInfo, reply.Envelope.Intent)

	fc.content = "Oi! Me conta o que você quer organizar."
	reply, err = New(fc, logger.Nop(), fixedNow).Chat(context.Background(), "oi", PlanContext{})
	require.NoError(t, err)
	assert.Nil(t, reply.Envelope)
	assert.Equal(t, "Oi! Me conta o que você quer organizar.", reply.Text)
}

func TestMessages_Alternation(t *testing.T) {
	history := []model.ConversationMessage{
		{Role: model.RoleAssistant, Content: "Olá!"},
		{Role: model.RoleSystem, Content: "Resumo: churrasco"},
		{Role: model.RoleUser, Content: "churrasco"},
		{Role: model.RoleAssistant, Content: "Para quantas pessoas?"},
	}
	got := messages(history, "20")

	require.Len(t, got, 3)
	assert.Equal(t, llm.RoleUser, got[0].Role)
	assert.Equal(t, "Resumo: churrasco\nchurrasco", got[0].Content)
	assert.Equal(t, llm.RoleAssistant, got[1].Role)
	assert.Equal(t, llm.ChatMessage{Role: llm.RoleUser, Content: "20"}, got[2])
}
