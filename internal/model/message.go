package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationMessage is one append-only entry of a user's chat history.
type ConversationMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	EventID   string    `json:"event_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// ContextResponse is the body of GET /api/v1/context.
type ContextResponse struct {
	Context        *ConversationContext  `json:"context"`
	History        []ConversationMessage `json:"history"`
	SessionExpired bool                  `json:"session_expired"`
}

// ListEventsResponse is the body of GET /api/v1/events.
type ListEventsResponse struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
}

// AvailabilityResponse is the body of GET /api/v1/events/name-availability.
type AvailabilityResponse struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Stale     bool   `json:"stale"`
}
