// Package planner asks the LLM for a structured {intent, payload} envelope
// and validates it before the orchestrator trusts any of it.
package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/capitalize-ai/event-assistant/internal/llm"
)

// ErrSchemaViolation wraps every parse or validation failure.
var ErrSchemaViolation = errors.New("planner: schema violation")

// Intent is the action the planner believes the user wants.
type Intent string

const (
	IntentCreateEvent   Intent = "create_event"
	IntentUpdateEvent   Intent = "update_event"
	IntentGenerateItems Intent = "generate_items"
	IntentConfirmEvent  Intent = "confirm_event"
	IntentEditItems     Intent = "edit_items"
	IntentListEvents    Intent = "list_events"
	IntentAskInfo       Intent = "ask_info"
	IntentChitchat      Intent = "chitchat"
)

var intents = map[Intent]bool{
	IntentCreateEvent:   true,
	IntentUpdateEvent:   true,
	IntentGenerateItems: true,
	IntentConfirmEvent:  true,
	IntentEditItems:     true,
	IntentListEvents:    true,
	IntentAskInfo:       true,
	IntentChitchat:      true,
}

// Payload is the slot bag attached to an intent. Unknown keys are rejected.
type Payload struct {
	EventType      string   `json:"event_type,omitempty"`
	Headcount      int      `json:"headcount,omitempty"`
	Date           string   `json:"date,omitempty"`
	Menu           string   `json:"menu,omitempty"`
	Occasion       string   `json:"occasion,omitempty"`
	ExcludeAlcohol *bool    `json:"exclude_alcohol,omitempty"`
	Command        string   `json:"command,omitempty"`
	Message        string   `json:"message,omitempty"`
	MissingSlots   []string `json:"missing_slots,omitempty"`
}

// Envelope is a validated planner answer.
type Envelope struct {
	Intent  Intent  `json:"intent"`
	Payload Payload `json:"payload"`
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var knownSlots = map[string]bool{"event_type": true, "headcount": true, "date": true}

// Validate parses raw model output (code fences allowed) and checks it
// against the envelope schema. Any failure wraps ErrSchemaViolation and no
// partial envelope is returned.
func Validate(raw string) (*Envelope, error) {
	body := llm.StripFences(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrSchemaViolation)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	for k := range top {
		if k != "intent" && k != "payload" {
			return nil, fmt.Errorf("%w: unexpected key %q", ErrSchemaViolation, k)
		}
	}

	var env Envelope
	if err := json.Unmarshal(top["intent"], &env.Intent); err != nil {
		return nil, fmt.Errorf("%w: intent: %v", ErrSchemaViolation, err)
	}
	if !intents[env.Intent] {
		return nil, fmt.Errorf("%w: unknown intent %q", ErrSchemaViolation, env.Intent)
	}

	if p, ok := top["payload"]; ok && !bytes.Equal(bytes.TrimSpace(p), []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(p))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&env.Payload); err != nil {
			return nil, fmt.Errorf("%w: payload: %v", ErrSchemaViolation, err)
		}
	}

	if err := checkPayload(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return &env, nil
}

func checkPayload(env *Envelope) error {
	p := &env.Payload
	p.EventType = strings.TrimSpace(p.EventType)
	p.Date = strings.TrimSpace(p.Date)

	if p.Headcount < 0 {
		return fmt.Errorf("headcount must be positive, got %d", p.Headcount)
	}
	if p.Date != "" && !isoDate.MatchString(p.Date) {
		return fmt.Errorf("date %q is not yyyy-mm-dd", p.Date)
	}
	for _, s := range p.MissingSlots {
		if !knownSlots[s] {
			return fmt.Errorf("unknown slot %q", s)
		}
	}

	switch env.Intent {
	case IntentCreateEvent:
		if p.EventType == "" && p.Headcount == 0 {
			return errors.New("create_event needs event_type or headcount")
		}
	case IntentUpdateEvent:
		if p.EventType == "" && p.Headcount == 0 && p.Date == "" && p.Menu == "" && p.Occasion == "" && p.ExcludeAlcohol == nil {
			return errors.New("update_event needs at least one field")
		}
	case IntentEditItems:
		if strings.TrimSpace(p.Command) == "" {
			return errors.New("edit_items needs command")
		}
	case IntentChitchat, IntentAskInfo:
		if strings.TrimSpace(p.Message) == "" {
			return fmt.Errorf("%s needs message", env.Intent)
		}
	}
	return nil
}

// Sniff looks for a valid envelope embedded anywhere in free text, as
// produced by an open conversational call.
func Sniff(text string) (*Envelope, bool) {
	if env, err := Validate(text); err == nil {
		return env, true
	}
	span, ok := llm.FirstJSONObject(text)
	if !ok {
		return nil, false
	}
	env, err := Validate(span)
	if err != nil {
		return nil, false
	}
	return env, true
}
