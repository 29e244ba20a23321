// Package items generates and normalizes event shopping lists.
package items

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-assistant/internal/llm"
	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
)

// ErrNoUsableItems is returned by ParseResponse when every record was rejected.
var ErrNoUsableItems = errors.New("items: no usable items in response")

// Adapter turns loosely-typed item records into canonical items.
type Adapter struct {
	log   *logger.Logger
	newID func() string
}

// NewAdapter creates an adapter. newID defaults to random UUIDs.
func NewAdapter(log *logger.Logger, newID func() string) *Adapter {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Adapter{log: logger.OrNop(log), newID: newID}
}

// Normalize validates one raw record. It returns nil when the name is empty;
// every other field falls back to its default.
func (a *Adapter) Normalize(raw map[string]any) *model.Item {
	name := strings.TrimSpace(stringField(raw, "name", "nome", "item"))
	if name == "" {
		a.log.Warn("dropping item without name", zap.Any("raw", raw))
		return nil
	}

	item := &model.Item{
		ID:       a.newID(),
		Name:     name,
		Quantity: 1,
		Unit:     model.DefaultUnit,
		Category: model.DefaultCategory,
		Priority: model.PriorityB,
	}

	if q, ok := numberField(raw, "quantity", "quantidade", "qty"); ok && q >= 0 {
		item.Quantity = q
	}
	if v, ok := numberField(raw, "estimated_value", "valor_estimado", "value", "valor", "estimatedValue"); ok && v >= 0 {
		item.EstimatedValue = math.Round(v*100) / 100
	}
	if u := strings.TrimSpace(stringField(raw, "unit", "unidade")); u != "" {
		item.Unit = u
	}
	if c := strings.TrimSpace(stringField(raw, "category", "categoria")); c != "" {
		item.Category = strings.ToLower(c)
	}
	switch p := model.Priority(strings.ToUpper(strings.TrimSpace(stringField(raw, "priority", "prioridade")))); p {
	case model.PriorityA, model.PriorityB, model.PriorityC:
		item.Priority = p
	}
	return item
}

// ParseResponse extracts items from model output. It accepts a JSON array, a
// single object or an object wrapping an "items" array, optionally inside
// one fenced code block. Partial success is allowed.
func (a *Adapter) ParseResponse(text string) ([]model.Item, error) {
	records, err := decodeRecords(llm.StripFences(text))
	if err != nil {
		return nil, err
	}

	out := make([]model.Item, 0, len(records))
	for _, raw := range records {
		if item := a.Normalize(raw); item != nil {
			out = append(out, *item)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoUsableItems
	}
	if dropped := len(records) - len(out); dropped > 0 {
		a.log.Warn("dropped invalid items", zap.Int("dropped", dropped), zap.Int("kept", len(out)))
	}
	return out, nil
}

func decodeRecords(body string) ([]map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		// Prose around the JSON: take the first array, then the first object.
		span, ok := llm.FirstJSONArray(body)
		if !ok {
			span, ok = llm.FirstJSONObject(body)
		}
		if !ok {
			return nil, fmt.Errorf("items: decode response: %w", err)
		}
		if err := json.Unmarshal([]byte(span), &v); err != nil {
			return nil, fmt.Errorf("items: decode response: %w", err)
		}
	}

	switch t := v.(type) {
	case []any:
		return objects(t), nil
	case map[string]any:
		for _, key := range []string{"items", "itens", "lista"} {
			if arr, ok := t[key].([]any); ok {
				return objects(arr), nil
			}
		}
		return []map[string]any{t}, nil
	}
	return nil, fmt.Errorf("items: unexpected JSON %T", v)
}

func objects(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// numberField accepts JSON numbers and strings with a comma or dot decimal
// separator, optionally followed by a unit ("1,5 kg").
func numberField(raw map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, present := raw[k]
		if !present || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case json.Number:
			f, err := t.Float64()
			return f, err == nil
		case string:
			return parseDecimal(t)
		default:
			return 0, false
		}
	}
	return 0, false
}

func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i > 0 {
		s = s[:i]
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
