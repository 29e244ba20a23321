// Package model defines data structures for the event-planning assistant.
package model

import (
	"time"
)

// EventStatus is the persisted lifecycle status of an event. The string
// values are stored as-is and read by downstream consumers.
type EventStatus string

const (
	EventStatusDraft          EventStatus = "draft"
	EventStatusCollectingCore EventStatus = "collecting_core"
	EventStatusPendingItems   EventStatus = "itens_pendentes_confirmacao"
	EventStatusCreated        EventStatus = "created"
	EventStatusFinalized      EventStatus = "finalized"
)

// EventStatuses lists every valid status in lifecycle order.
var EventStatuses = []EventStatus{
	EventStatusDraft,
	EventStatusCollectingCore,
	EventStatusPendingItems,
	EventStatusCreated,
	EventStatusFinalized,
}

// Rank returns the position of the status in the lifecycle, or -1 when unknown.
func (s EventStatus) Rank() int {
	for i, st := range EventStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the enumerated statuses.
func (s EventStatus) Valid() bool {
	return s.Rank() >= 0
}

// Terminal reports whether no further transitions are allowed.
func (s EventStatus) Terminal() bool {
	return s == EventStatusFinalized
}

// Collecting reports whether the event is still gathering core slots.
func (s EventStatus) Collecting() bool {
	return s == EventStatusDraft || s == EventStatusCollectingCore
}

// CanTransition reports whether an event may move from one status to another.
// Status only moves forward; redraw allows going back to the pending or
// collecting stages of a non-terminal event.
func CanTransition(from, to EventStatus, redraw bool) bool {
	if !to.Valid() {
		return false
	}
	if from == "" {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to.Rank() >= from.Rank() {
		return true
	}
	return redraw && (to == EventStatusPendingItems || to == EventStatusCollectingCore)
}

// Event is a planned gathering owned by a single user.
type Event struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Headcount int         `json:"headcount"`
	Date      *string     `json:"date"`
	Status    EventStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// DateValue returns the ISO date or an empty string.
func (e *Event) DateValue() string {
	if e == nil || e.Date == nil {
		return ""
	}
	return *e.Date
}

// Priority is the coarse importance tier of a shopping-list item.
type Priority string

const (
	PriorityA Priority = "A"
	PriorityB Priority = "B"
	PriorityC Priority = "C"
)

// DefaultCategory is used when an item has no category.
const DefaultCategory = "geral"

// DefaultUnit is used when an item has no unit.
const DefaultUnit = "un"

// Item is one line of an event shopping list. EstimatedValue is the total
// for the line, not a per-unit price.
type Item struct {
	ID             string   `json:"id"`
	EventID        string   `json:"event_id"`
	Name           string   `json:"name"`
	Quantity       float64  `json:"quantity"`
	Unit           string   `json:"unit"`
	EstimatedValue float64  `json:"estimated_value"`
	Category       string   `json:"category"`
	Priority       Priority `json:"priority"`
}

// Participant is a guest attached to an event.
type Participant struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
}

// Snapshot is an event together with its items and participants.
type Snapshot struct {
	Event        Event         `json:"event"`
	Items        []Item        `json:"items"`
	Participants []Participant `json:"participants"`
}

// TotalValue sums the estimated value of all items.
func (s *Snapshot) TotalValue() float64 {
	var total float64
	for _, it := range s.Items {
		total += it.EstimatedValue
	}
	return total
}

// DomainEventType is the kind of a published domain event.
type DomainEventType string

const (
	DomainEventUpserted       DomainEventType = "event_upserted"
	DomainEventItemsGenerated DomainEventType = "items_generated"
	DomainEventItemsEdited    DomainEventType = "items_edited"
	DomainEventItemsConfirmed DomainEventType = "items_confirmed"
	DomainEventFinalized      DomainEventType = "event_finalized"
	DomainEventContextReset   DomainEventType = "context_reset"
)

// DomainEvent is a side effect of a conversational turn, published for
// downstream consumers.
type DomainEvent struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	EventID   string          `json:"event_id,omitempty"`
	Type      DomainEventType `json:"type"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
