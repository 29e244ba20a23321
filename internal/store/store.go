// Package store defines the persistence contracts used by the conversation
// engine. Implementations live in the memory and postgres subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/capitalize-ai/event-assistant/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// EventRepository persists events and reads event snapshots.
type EventRepository interface {
	// GetDraftByUser returns the most recently updated non-finalized event of
	// the user, or ErrNotFound.
	GetDraftByUser(ctx context.Context, userID string) (*model.Event, error)
	// GetSnapshot returns the event with its items and participants.
	GetSnapshot(ctx context.Context, eventID string) (*model.Snapshot, error)
	Upsert(ctx context.Context, event *model.Event) error
	SetStatus(ctx context.Context, eventID string, status model.EventStatus, at time.Time) error
	// ListOpenByUser returns every non-finalized event, newest first.
	ListOpenByUser(ctx context.Context, userID string) ([]model.Event, error)
	// NameTaken reports whether the user already has an event with this name,
	// compared case-insensitively.
	NameTaken(ctx context.Context, userID, name string) (bool, error)
}

// ItemRepository persists shopping lists. Item sets are only ever replaced
// as a whole.
type ItemRepository interface {
	ReplaceAllForEvent(ctx context.Context, eventID string, items []model.Item) error
}

// ContextStore persists one conversation context per user.
type ContextStore interface {
	GetContext(ctx context.Context, userID string) (*model.ConversationContext, error)
	UpsertContext(ctx context.Context, c *model.ConversationContext) error
	DeleteContext(ctx context.Context, userID string) error
}

// MessageStore persists the append-only chat history.
type MessageStore interface {
	AppendMessage(ctx context.Context, m *model.ConversationMessage) error
	// RecentMessages returns up to limit messages created at or after since,
	// oldest first.
	RecentMessages(ctx context.Context, userID string, since time.Time, limit int) ([]model.ConversationMessage, error)
	DeleteMessages(ctx context.Context, userID string) error
}

// Store bundles every repository behind one backend.
type Store interface {
	EventRepository
	ItemRepository
	ContextStore
	MessageStore

	Ping(ctx context.Context) error
	Close()
}
