package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/event-assistant/internal/llm"
	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
	"github.com/capitalize-ai/event-assistant/pkg/metrics"
)

const (
	// PlanTemperature is used for structured extraction.
	PlanTemperature = 0.1
	// ChatTemperature is used for open conversation.
	ChatTemperature = 0.7

	historyWindow = 10
)

// ErrUnavailable is returned when no LLM is configured.
var ErrUnavailable = errors.New("planner: no LLM configured")

// Planner talks to the LLM on behalf of the orchestrator.
type Planner struct {
	llm llm.Completer
	log *logger.Logger
	now func() time.Time
}

// New creates a planner. now defaults to the wall clock.
func New(completer llm.Completer, log *logger.Logger, now func() time.Time) *Planner {
	if now == nil {
		now = time.Now
	}
	return &Planner{llm: completer, log: logger.OrNop(log), now: now}
}

// Available reports whether an LLM is configured.
func (p *Planner) Available() bool {
	return p != nil && p.llm != nil
}

// Plan asks for an intent envelope. Transport failures are returned as-is;
// anything wrong with the answer wraps ErrSchemaViolation.
func (p *Planner) Plan(ctx context.Context, text string, pc PlanContext) (*Envelope, error) {
	if !p.Available() {
		return nil, ErrUnavailable
	}

	raw, err := llm.Text(ctx, p.llm, &llm.CompletionRequest{
		System:      buildSystem(plannerRules, p.now(), pc),
		Messages:    messages(pc.History, text),
		Temperature: PlanTemperature,
		Purpose:     "planner",
	})
	if err != nil {
		metrics.PlannerFailuresTotal.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("planner: complete: %w", err)
	}

	env, err := Validate(raw)
	if err != nil {
		metrics.PlannerFailuresTotal.WithLabelValues("schema").Inc()
		p.log.Warn("planner answer rejected", zap.Error(err), zap.Int("length", len(raw)))
		return nil, err
	}
	return env, nil
}

// ChatReply is the result of the open conversational path.
type ChatReply struct {
	Text     string
	Envelope *Envelope
}

// Chat runs the less strict conversational call and sniffs an envelope out of
// the reply when one is present.
func (p *Planner) Chat(ctx context.Context, text string, pc PlanContext) (*ChatReply, error) {
	if !p.Available() {
		return nil, ErrUnavailable
	}

	raw, err := llm.Text(ctx, p.llm, &llm.CompletionRequest{
		System:      buildSystem(chatRules, p.now(), pc),
		Messages:    messages(pc.History, text),
		Temperature: ChatTemperature,
		Purpose:     "chat",
	})
	if err != nil {
		return nil, fmt.Errorf("planner: chat: %w", err)
	}

	reply := &ChatReply{Text: raw}
	if env, ok := Sniff(raw); ok {
		reply.Envelope = env
		reply.Text = stripEnvelope(raw, env)
	}
	return reply, nil
}

// stripEnvelope removes the JSON tail from a chat answer, keeping the prose.
// When only JSON was returned the envelope message is used instead.
func stripEnvelope(raw string, env *Envelope) string {
	if span, ok := llm.FirstJSONObject(raw); ok {
		prose := llm.StripFences(strings.Replace(raw, span, "", 1))
		if prose != "" {
			return prose
		}
	}
	return env.Payload.Message
}

// messages converts stored history into alternating chat turns ending with
// the current utterance. System entries (summaries) are sent as user turns.
func messages(history []model.ConversationMessage, text string) []llm.ChatMessage {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	out := make([]llm.ChatMessage, 0, len(history)+1)
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == model.RoleAssistant {
			role = llm.RoleAssistant
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n" + m.Content
			continue
		}
		out = append(out, llm.ChatMessage{Role: role, Content: m.Content})
	}
	// Providers expect the first turn to come from the user.
	if len(out) > 0 && out[0].Role == llm.RoleAssistant {
		out = out[1:]
	}
	if n := len(out); n > 0 && out[n-1].Role == llm.RoleUser {
		out[n-1].Content += "\n" + text
		return out
	}
	return append(out, llm.ChatMessage{Role: llm.RoleUser, Content: text})
}
