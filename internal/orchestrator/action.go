package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAction   = errors.New("orchestrator: unknown action")
	ErrEmptyMessage    = errors.New("orchestrator: message is empty")
	ErrUnknownStrategy = errors.New("orchestrator: unknown strategy")
	ErrNoUser          = errors.New("orchestrator: user id is required")
)

// Action is one request to the orchestrator. The set of variants is closed.
type Action interface {
	Name() string
	action()
}

// SendMessage is a normal conversational turn.
type SendMessage struct{ Text string }

// ForceGenerate is a turn where the user asked to generate the list now.
type ForceGenerate struct{ Text string }

// ListOpenEvents returns every non-finalized event of the user.
type ListOpenEvents struct{}

// ConfirmItems accepts the pending item list.
type ConfirmItems struct{}

// FinalizeEvent closes a confirmed event.
type FinalizeEvent struct{}

// Regenerate redraws the item list of the linked event.
type Regenerate struct{}

// ResetConversation returns the context to idle, keeping history.
type ResetConversation struct{}

// ClearHistory deletes the user's persisted messages.
type ClearHistory struct{}

func (SendMessage) Name() string       { return "send_message" }
func (ForceGenerate) Name() string     { return "force_generate" }
func (ListOpenEvents) Name() string    { return "list_events" }
func (ConfirmItems) Name() string      { return "confirm_items" }
func (FinalizeEvent) Name() string     { return "finalize_event" }
func (Regenerate) Name() string        { return "regenerate" }
func (ResetConversation) Name() string { return "reset" }
func (ClearHistory) Name() string      { return "clear_history" }

func (SendMessage) action()       {}
func (ForceGenerate) action()     {}
func (ListOpenEvents) action()    {}
func (ConfirmItems) action()      {}
func (FinalizeEvent) action()     {}
func (Regenerate) action()        {}
func (ResetConversation) action() {}
func (ClearHistory) action()      {}

// ParseAction maps a wire action name and message text to a variant. An
// empty name means a plain message.
func ParseAction(name, text string) (Action, error) {
	text = strings.TrimSpace(text)
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "send_message", "message":
		if text == "" {
			return nil, ErrEmptyMessage
		}
		return SendMessage{Text: text}, nil
	case "force_generate", "generate":
		return ForceGenerate{Text: text}, nil
	case "list_events", "list_open_events":
		return ListOpenEvents{}, nil
	case "confirm_items", "confirm":
		return ConfirmItems{}, nil
	case "finalize_event", "finalize":
		return FinalizeEvent{}, nil
	case "regenerate", "redraw":
		return Regenerate{}, nil
	case "reset", "reset_conversation":
		return ResetConversation{}, nil
	case "clear_history":
		return ClearHistory{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// Strategy selects whether the intent planner runs before the heuristics.
type Strategy string

const (
	StrategyHeuristic Strategy = "heuristic"
	StrategyPlanner   Strategy = "planner"
)

// ParseStrategy parses a configured strategy name. Empty means heuristic.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyHeuristic:
		return StrategyHeuristic, nil
	case StrategyPlanner:
		return StrategyPlanner, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}
