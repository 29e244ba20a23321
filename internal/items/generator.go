package items

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-assistant/internal/llm"
	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/textnorm"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
	"github.com/capitalize-ai/event-assistant/pkg/metrics"
)

// GenerationTemperature keeps item lists stable across calls.
const GenerationTemperature = 0.3

// Request describes the event an item list is generated for.
type Request struct {
	EventType      string
	Headcount      int
	Menu           string
	Occasion       string
	ExcludeAlcohol bool
}

// Generator asks the LLM for an item list and falls back to a fixed set on
// any failure.
type Generator struct {
	llm     llm.Completer
	adapter *Adapter
	newID   func() string
	log     *logger.Logger
}

// NewGenerator creates a generator. completer may be nil, in which case every
// call uses the fallback.
func NewGenerator(completer llm.Completer, log *logger.Logger, newID func() string) *Generator {
	if newID == nil {
		newID = uuid.NewString
	}
	log = logger.OrNop(log)
	return &Generator{
		llm:     completer,
		adapter: NewAdapter(log, newID),
		newID:   newID,
		log:     log,
	}
}

// Generate never fails: it returns at least one item.
func (g *Generator) Generate(ctx context.Context, req Request) []model.Item {
	items, err := g.fromLLM(ctx, req)
	if err == nil {
		return items
	}

	reason := fallbackReason(err)
	metrics.ItemFallbacksTotal.WithLabelValues(reason).Inc()
	g.log.Warn("using fallback item list",
		zap.String("event_type", req.EventType),
		zap.Int("headcount", req.Headcount),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return g.Fallback(req)
}

// Fallback returns the deterministic item set for req.
func (g *Generator) Fallback(req Request) []model.Item {
	return Fallback(req, g.newID)
}

var (
	errNoCompleter = errors.New("items: no LLM configured")
	errAllFiltered = errors.New("items: every item was alcoholic")
)

func (g *Generator) fromLLM(ctx context.Context, req Request) ([]model.Item, error) {
	if g.llm == nil {
		return nil, errNoCompleter
	}

	system, user := BuildPrompt(req)
	text, err := llm.Text(ctx, g.llm, &llm.CompletionRequest{
		System:      system,
		Messages:    []llm.ChatMessage{{Role: llm.RoleUser, Content: user}},
		Temperature: GenerationTemperature,
		Purpose:     "items",
	})
	if err != nil {
		return nil, err
	}

	items, err := g.adapter.ParseResponse(text)
	if err != nil {
		return nil, err
	}
	if req.ExcludeAlcohol {
		items = withoutAlcohol(items)
		if len(items) == 0 {
			return nil, errAllFiltered
		}
	}
	return items, nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, errNoCompleter):
		return "no_llm"
	case errors.Is(err, llm.ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ErrNoUsableItems):
		return "no_usable_items"
	case errors.Is(err, errAllFiltered):
		return "all_filtered"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}

var alcoholWords = map[string]bool{
	"cerveja": true, "cervejas": true, "chopp": true, "chope": true,
	"vinho": true, "vinhos": true, "espumante": true, "champanhe": true,
	"vodka": true, "whisky": true, "uisque": true, "cachaca": true,
	"caipirinha": true, "caipiroska": true, "gin": true, "rum": true,
	"tequila": true, "licor": true, "sake": true, "sangria": true,
	"drinks": true, "drink": true, "alcool": true, "alcoolicas": true,
}

// IsAlcoholic reports whether an item name names an alcoholic beverage.
func IsAlcoholic(name string) bool {
	for _, w := range textnorm.Words(name) {
		if alcoholWords[w] {
			return true
		}
	}
	return false
}

func withoutAlcohol(items []model.Item) []model.Item {
	out := items[:0]
	for _, it := range items {
		if !IsAlcoholic(it.Name) {
			out = append(out, it)
		}
	}
	return out
}
