package model

import (
	"time"
)

// ContextState is the dialogue state label stored on a conversation context.
type ContextState string

const (
	StateIdle           ContextState = "idle"
	StateCollectingCore ContextState = "collecting_core"
	StatePendingItems   ContextState = "itens_pendentes_confirmacao"
	StateCreated        ContextState = "created"
	StateFinalized      ContextState = "finalized"
)

// Slot names used in collected data and missing-slot lists.
const (
	SlotEventType = "event_type"
	SlotHeadcount = "headcount"
	SlotDate      = "date"
)

// CollectedData is the union of explicit and LLM-inferred slot values.
type CollectedData struct {
	EventType      string         `json:"event_type,omitempty"`
	Headcount      int            `json:"headcount,omitempty"`
	Date           string         `json:"date,omitempty"`
	Menu           string         `json:"menu,omitempty"`
	Occasion       string         `json:"occasion,omitempty"`
	ExcludeAlcohol bool           `json:"exclude_alcohol,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// HasCore reports whether type and headcount are both known.
func (d CollectedData) HasCore() bool {
	return d.EventType != "" && d.Headcount > 0
}

// MissingSlots lists the core slots that are still unknown.
func (d CollectedData) MissingSlots() []string {
	missing := make([]string, 0, 3)
	if d.EventType == "" {
		missing = append(missing, SlotEventType)
	}
	if d.Headcount <= 0 {
		missing = append(missing, SlotHeadcount)
	}
	if d.Date == "" {
		missing = append(missing, SlotDate)
	}
	return missing
}

// Merge overlays non-empty values of other onto d.
func (d CollectedData) Merge(other CollectedData) CollectedData {
	if other.EventType != "" {
		d.EventType = other.EventType
	}
	if other.Headcount > 0 {
		d.Headcount = other.Headcount
	}
	if other.Date != "" {
		d.Date = other.Date
	}
	if other.Menu != "" {
		d.Menu = other.Menu
	}
	if other.Occasion != "" {
		d.Occasion = other.Occasion
	}
	if other.ExcludeAlcohol {
		d.ExcludeAlcohol = true
	}
	if len(other.Extra) > 0 {
		extra := make(map[string]any, len(d.Extra)+len(other.Extra))
		for k, v := range d.Extra {
			extra[k] = v
		}
		for k, v := range other.Extra {
			extra[k] = v
		}
		d.Extra = extra
	}
	return d
}

// ConversationContext is the per-user dialogue state, upserted every turn.
type ConversationContext struct {
	UserID          string        `json:"user_id"`
	State           ContextState  `json:"state"`
	CollectedData   CollectedData `json:"collected_data"`
	MissingSlots    []string      `json:"missing_slots"`
	ConfidenceLevel float64       `json:"confidence_level"`
	LastIntent      string        `json:"last_intent,omitempty"`
	EventID         string        `json:"event_id,omitempty"`
	Summary         string        `json:"summary,omitempty"`

	// Messages created before HistorySince are not part of the working history.
	HistorySince      time.Time `json:"history_since"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultConfidence is the confidence of a freshly created context.
const DefaultConfidence = 0.5

// NewConversationContext returns the default context for a user.
func NewConversationContext(userID string, now time.Time) *ConversationContext {
	return &ConversationContext{
		UserID:          userID,
		State:           StateIdle,
		MissingSlots:    []string{SlotEventType, SlotHeadcount, SlotDate},
		ConfidenceLevel: DefaultConfidence,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
