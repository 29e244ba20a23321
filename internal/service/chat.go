// Package service serializes per-user work in front of the orchestrator.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/capitalize-ai/event-assistant/internal/lookup"
	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/orchestrator"
	"github.com/capitalize-ai/event-assistant/internal/session"
	"github.com/capitalize-ai/event-assistant/internal/store"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
)

// MaxMessageLength bounds a single chat message in bytes.
const MaxMessageLength = 4000

// ErrInvalidRequest marks input the caller must fix.
var ErrInvalidRequest = errors.New("invalid request")

// ChatService runs at most one turn per user at a time.
type ChatService struct {
	orch     *orchestrator.Orchestrator
	sessions *session.Manager
	events   store.EventRepository
	names    *lookup.Checker
	log      *logger.Logger
	locks    *keyedMutex
}

// NewChatService creates a chat service.
func NewChatService(orch *orchestrator.Orchestrator, sessions *session.Manager, events store.EventRepository, log *logger.Logger) *ChatService {
	log = logger.OrNop(log)
	return &ChatService{
		orch:     orch,
		sessions: sessions,
		events:   events,
		names:    lookup.NewChecker(events, log),
		log:      log,
		locks:    newKeyedMutex(),
	}
}

// Chat parses the request into an action and runs it.
func (s *ChatService) Chat(ctx context.Context, userID string, req *model.ChatRequest) (*orchestrator.Reply, error) {
	if err := validateMessage(req.Message); err != nil {
		return nil, err
	}
	action, err := orchestrator.ParseAction(req.Action, req.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	reply, err := s.orch.Handle(ctx, userID, action)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoUser) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, err
	}
	s.log.Debug("turn handled",
		zap.String("user_id", userID),
		zap.String("action", action.Name()),
		zap.String("branch", string(reply.Branch)),
	)
	return reply, nil
}

// Context returns the user's context and the history the engine would see.
func (s *ChatService) Context(ctx context.Context, userID string) (*model.ContextResponse, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	loaded, err := s.sessions.LoadUserContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	history := loaded.History
	if history == nil {
		history = []model.ConversationMessage{}
	}
	return &model.ContextResponse{
		Context:        loaded.Context,
		History:        history,
		SessionExpired: loaded.SessionExpired,
	}, nil
}

// ClearContext deletes the context and the whole history.
func (s *ChatService) ClearContext(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.sessions.ClearUserContext(ctx, userID)
}

// ClearHistory deletes the history only.
func (s *ChatService) ClearHistory(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.sessions.ClearHistory(ctx, userID)
}

// ListEvents returns the user's non-finalized events.
func (s *ChatService) ListEvents(ctx context.Context, userID string) (*model.ListEventsResponse, error) {
	events, err := s.events.ListOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return &model.ListEventsResponse{Events: events, Total: len(events)}, nil
}

// NameAvailability checks whether name is free for the user. Lookups are not
// serialized; a result overtaken by a newer lookup comes back marked stale.
func (s *ChatService) NameAvailability(ctx context.Context, userID, name string) (*model.AvailabilityResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	res, err := s.names.Check(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	return &model.AvailabilityResponse{Name: res.Name, Available: res.Available, Stale: res.Stale}, nil
}

func validateMessage(msg string) error {
	if len(msg) > MaxMessageLength {
		return fmt.Errorf("%w: message exceeds maximum length", ErrInvalidRequest)
	}
	if !utf8.ValidString(msg) {
		return fmt.Errorf("%w: message must be valid UTF-8", ErrInvalidRequest)
	}
	return nil
}
