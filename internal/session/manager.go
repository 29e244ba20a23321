// Package session loads, persists and expires per-user conversation state.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-assistant/internal/dates"
	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/store"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
)

const (
	DefaultTimeout          = 4 * time.Hour
	DefaultHistoryLimit     = 50
	DefaultSummaryThreshold = 10
)

// Config holds the session windows.
type Config struct {
	Timeout          time.Duration
	HistoryLimit     int
	SummaryThreshold int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.SummaryThreshold <= 0 {
		c.SummaryThreshold = DefaultSummaryThreshold
	}
	return c
}

// Loaded is a user's context together with the working history for the turn.
type Loaded struct {
	Context *model.ConversationContext
	// History is chronological and already summarized.
	History        []model.ConversationMessage
	SessionExpired bool
}

// ContextUpdate carries the fields to change. Nil fields are left as they are;
// an empty EventID string unlinks the event.
type ContextUpdate struct {
	State         *model.ContextState
	CollectedData *model.CollectedData
	MissingSlots  []string
	Confidence    *float64
	LastIntent    *string
	EventID       *string
	Summary       *string
}

// Manager is the context manager. Now and NewID are replaceable for tests.
type Manager struct {
	contexts store.ContextStore
	messages store.MessageStore
	cfg      Config
	log      *logger.Logger

	Now   func() time.Time
	NewID func() string
}

// NewManager creates a manager over the given stores.
func NewManager(contexts store.ContextStore, messages store.MessageStore, cfg Config, log *logger.Logger) *Manager {
	return &Manager{
		contexts: contexts,
		messages: messages,
		cfg:      cfg.withDefaults(),
		log:      logger.OrNop(log),
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

// LoadUserContext returns the user's context, creating the default one on
// first contact, and applies the session timeout.
func (m *Manager) LoadUserContext(ctx context.Context, userID string) (*Loaded, error) {
	now := m.Now()

	c, err := m.contexts.GetContext(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		c = model.NewConversationContext(userID, now)
		if err := m.contexts.UpsertContext(ctx, c); err != nil {
			return nil, fmt.Errorf("create context: %w", err)
		}
		return &Loaded{Context: c}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}

	if !c.LastInteractionAt.IsZero() && now.Sub(c.LastInteractionAt) > m.cfg.Timeout {
		return m.expire(ctx, c, now)
	}

	history, err := m.messages.RecentMessages(ctx, userID, c.HistorySince, m.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return &Loaded{Context: c, History: m.summarize(c, history)}, nil
}

// expire handles a timed-out session. Without a linked event everything is
// dropped. With one, the event and slots survive and history starts over.
func (m *Manager) expire(ctx context.Context, c *model.ConversationContext, now time.Time) (*Loaded, error) {
	log := m.log.With(zap.String("user_id", c.UserID), zap.Time("last_interaction_at", c.LastInteractionAt))

	if c.EventID == "" {
		if err := m.ClearUserContext(ctx, c.UserID); err != nil {
			return nil, err
		}
		fresh := model.NewConversationContext(c.UserID, now)
		if err := m.contexts.UpsertContext(ctx, fresh); err != nil {
			return nil, fmt.Errorf("recreate context: %w", err)
		}
		log.Info("session expired, context cleared")
		return &Loaded{Context: fresh, SessionExpired: true}, nil
	}

	c.HistorySince = now
	c.LastInteractionAt = now
	c.UpdatedAt = now
	if err := m.contexts.UpsertContext(ctx, c); err != nil {
		return nil, fmt.Errorf("save expired context: %w", err)
	}
	log.Info("session expired, keeping linked event", zap.String("event_id", c.EventID))
	return &Loaded{Context: c, SessionExpired: true}, nil
}

// summarize folds everything but the last SummaryThreshold messages into one
// system message.
func (m *Manager) summarize(c *model.ConversationContext, history []model.ConversationMessage) []model.ConversationMessage {
	keep := m.cfg.SummaryThreshold
	if len(history) <= keep {
		return history
	}
	older := len(history) - keep

	var b strings.Builder
	b.WriteString("Resumo da conversa até aqui.")
	if facts := describeSlots(c.CollectedData); facts != "" {
		b.WriteString(" Dados coletados: ")
		b.WriteString(facts)
		b.WriteString(".")
	}
	fmt.Fprintf(&b, " %d mensagens anteriores resumidas.", older)
	if s := strings.TrimSpace(c.Summary); s != "" {
		b.WriteString(" ")
		b.WriteString(s)
	}

	out := make([]model.ConversationMessage, 0, keep+1)
	out = append(out, model.ConversationMessage{
		ID:        "summary",
		UserID:    c.UserID,
		Role:      model.RoleSystem,
		Content:   b.String(),
		EventID:   c.EventID,
		CreatedAt: history[older-1].CreatedAt,
	})
	return append(out, history[older:]...)
}

func describeSlots(d model.CollectedData) string {
	var parts []string
	if d.EventType != "" {
		parts = append(parts, "tipo "+d.EventType)
	}
	if d.Headcount > 0 {
		parts = append(parts, fmt.Sprintf("%d pessoas", d.Headcount))
	}
	if d.Date != "" {
		parts = append(parts, "data "+dates.FormatBR(d.Date))
	}
	if d.Menu != "" {
		parts = append(parts, "cardápio "+d.Menu)
	}
	if d.ExcludeAlcohol {
		parts = append(parts, "sem álcool")
	}
	return strings.Join(parts, ", ")
}

// SaveMessage appends one message to the user's history.
func (m *Manager) SaveMessage(ctx context.Context, userID string, role model.Role, content, eventID string) (*model.ConversationMessage, error) {
	msg := &model.ConversationMessage{
		ID:        m.NewID(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		EventID:   eventID,
		CreatedAt: m.Now(),
	}
	if err := m.messages.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// UpdateContext applies u to the user's context and marks the interaction.
func (m *Manager) UpdateContext(ctx context.Context, userID string, u ContextUpdate) (*model.ConversationContext, error) {
	now := m.Now()

	c, err := m.contexts.GetContext(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		c = model.NewConversationContext(userID, now)
	} else if err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}

	if u.State != nil {
		c.State = *u.State
	}
	if u.CollectedData != nil {
		c.CollectedData = *u.CollectedData
	}
	if u.MissingSlots != nil {
		c.MissingSlots = append([]string{}, u.MissingSlots...)
	}
	if u.Confidence != nil {
		c.ConfidenceLevel = clamp01(*u.Confidence)
	}
	if u.LastIntent != nil {
		c.LastIntent = *u.LastIntent
	}
	if u.EventID != nil {
		c.EventID = *u.EventID
	}
	if u.Summary != nil {
		c.Summary = *u.Summary
	}
	c.LastInteractionAt = now
	c.UpdatedAt = now

	if err := m.contexts.UpsertContext(ctx, c); err != nil {
		return nil, fmt.Errorf("save context: %w", err)
	}
	return c, nil
}

// ClearUserContext deletes the context and every persisted message.
func (m *Manager) ClearUserContext(ctx context.Context, userID string) error {
	if err := m.messages.DeleteMessages(ctx, userID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if err := m.contexts.DeleteContext(ctx, userID); err != nil {
		return fmt.Errorf("delete context: %w", err)
	}
	return nil
}

// ResetContextKeepHistory puts the context back to idle without touching
// persisted messages.
func (m *Manager) ResetContextKeepHistory(ctx context.Context, userID string) (*model.ConversationContext, error) {
	now := m.Now()
	c := model.NewConversationContext(userID, now)
	if prev, err := m.contexts.GetContext(ctx, userID); err == nil {
		c.CreatedAt = prev.CreatedAt
		c.HistorySince = prev.HistorySince
	}
	c.LastInteractionAt = now
	if err := m.contexts.UpsertContext(ctx, c); err != nil {
		return nil, fmt.Errorf("reset context: %w", err)
	}
	return c, nil
}

// ClearEventID unlinks the event, leaving the rest of the context intact.
func (m *Manager) ClearEventID(ctx context.Context, userID string) error {
	empty := ""
	_, err := m.UpdateContext(ctx, userID, ContextUpdate{EventID: &empty})
	return err
}

// ClearHistory deletes persisted messages only.
func (m *Manager) ClearHistory(ctx context.Context, userID string) error {
	if err := m.messages.DeleteMessages(ctx, userID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
