package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-assistant/pkg/logger"
)

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"```json\n[{\"name\":\"x\"}]\n```":     `[{"name":"x"}]`,
		"Aqui está:\n```\n{\"a\":1}\n```\nFim": `{"a":1}`,
		"  [1,2]  ":                            "[1,2]",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripFences(in))
	}
}

func TestFirstJSONObject(t *testing.T) {
	got, ok := FirstJSONObject(`Claro! {"intent":"chitchat","payload":{"message":"oi {sic}"}} obrigado`)
	require.True(t, ok)
	assert.Equal(t, `{"intent":"chitchat","payload":{"message":"oi {sic}"}}`, got)

	_, ok = FirstJSONObject("sem json aqui")
	assert.False(t, ok)

	_, ok = FirstJSONObject(`{"aberto": true`)
	assert.False(t, ok)
}

type stubClient struct {
	resp *CompletionResponse
	err  error
	seen *CompletionRequest
}

func (s *stubClient) Name() string { return "stub" }

func (s *stubClient) Complete(_ context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	s.seen = req
	return s.resp, s.err
}

func TestText(t *testing.T) {
	log := logger.Nop()

	c := NewInstrumented(&stubClient{resp: &CompletionResponse{Content: "olá"}}, 0, log)
	out, err := Text(context.Background(), c, &CompletionRequest{Purpose: "chat"})
	require.NoError(t, err)
	assert.Equal(t, "olá", out)

	c = NewInstrumented(&stubClient{resp: &CompletionResponse{Content: "  \n"}}, 0, log)
	_, err = Text(context.Background(), c, &CompletionRequest{})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	boom := errors.New("boom")
	c = NewInstrumented(&stubClient{err: boom}, 0, log)
	_, err = Text(context.Background(), c, &CompletionRequest{})
	assert.ErrorIs(t, err, boom)
}
