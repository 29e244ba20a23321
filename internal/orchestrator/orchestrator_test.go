package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-assistant/internal/items"
	"github.com/capitalize-ai/event-assistant/internal/llm"
	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/planner"
	"github.com/capitalize-ai/event-assistant/internal/session"
	"github.com/capitalize-ai/event-assistant/internal/store/memory"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
)

var wednesday = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

// scriptedLLM answers by request purpose and counts calls.
type scriptedLLM struct {
	mu      sync.Mutex
	answers map[string]string
	calls   map[string]int
}

func (s *scriptedLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[req.Purpose]++
	answer, ok := s.answers[req.Purpose]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &llm.CompletionResponse{Content: answer}, nil
}

func (s *scriptedLLM) count(purpose string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[purpose]
}

type recordingPublisher struct {
	mu    sync.Mutex
	kinds []model.DomainEventType
}

func (p *recordingPublisher) Publish(_ context.Context, ev *model.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, ev.Type)
	return nil
}

type harness struct {
	o     *Orchestrator
	store *memory.Store
	sess  *session.Manager
	llm   *scriptedLLM
	pub   *recordingPublisher
	now   time.Time
}

func newHarness(t *testing.T, strategy Strategy, answers map[string]string) *harness {
	t.Helper()
	h := &harness{store: memory.New(), llm: &scriptedLLM{answers: answers}, pub: &recordingPublisher{}, now: wednesday}
	clock := func() time.Time { return h.now }

	n := 0
	newID := func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}

	h.sess = session.NewManager(h.store, h.store, session.Config{}, logger.Nop())
	h.sess.Now = clock
	h.sess.NewID = newID

	h.o = New(Config{Strategy: strategy}, Deps{
		Repo:      h.store,
		Sessions:  h.sess,
		Generator: items.NewGenerator(h.llm, logger.Nop(), newID),
		Planner:   planner.New(h.llm, logger.Nop(), clock),
		Publisher: h.pub,
		Log:       logger.Nop(),
		Now:       clock,
		NewID:     newID,
	})
	return h
}

func (h *harness) send(t *testing.T, text string) *Reply {
	t.Helper()
	h.now = h.now.Add(time.Minute)
	r, err := h.o.Handle(context.Background(), "u1", SendMessage{Text: text})
	require.NoError(t, err)
	return r
}

func (h *harness) do(t *testing.T, a Action) *Reply {
	t.Helper()
	h.now = h.now.Add(time.Minute)
	r, err := h.o.Handle(context.Background(), "u1", a)
	require.NoError(t, err)
	return r
}

func itemNamed(snap *model.Snapshot, name string) *model.Item {
	for i := range snap.Items {
		if snap.Items[i].Name == name {
			return &snap.Items[i]
		}
	}
	return nil
}

func TestNoDateAsksForDateAndNeverGenerates(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)

	r := h.send(t, "Churrasco para 20 pessoas")
	assert.Equal(t, BranchAskDate, r.Branch)
	assert.Equal(t, model.StateCollectingCore, r.State)
	assert.Contains(t, r.Message, "data")
	require.NotEmpty(t, r.EventID)

	snap, err := h.store.GetSnapshot(context.Background(), r.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusCollectingCore, snap.Event.Status)
	assert.Empty(t, snap.Items)
	assert.Equal(t, 0, h.llm.count("items"))

	c, err := h.store.GetContext(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.StateCollectingCore, c.State)
	assert.Equal(t, []string{model.SlotDate}, c.MissingSlots)
	assert.Equal(t, r.EventID, c.EventID)
}

func TestFullConversation(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)

	first := h.send(t, "Churrasco para 20 pessoas")
	require.Equal(t, BranchAskDate, first.Branch)

	r := h.send(t, "dia 12/12")
	require.Equal(t, BranchGenerate, r.Branch)
	assert.Equal(t, model.StatePendingItems, r.State)
	assert.Equal(t, first.EventID, r.EventID)
	require.NotNil(t, r.Snapshot)
	assert.Equal(t, "2026-12-12", r.Snapshot.Event.DateValue())
	assert.Len(t, r.Snapshot.Items, 9)
	assert.Contains(t, r.CTAs, ctaConfirm)
	assert.Contains(t, r.Message, "Carne bovina")

	r = h.send(t, "tira a cerveja")
	require.Equal(t, BranchItemEdit, r.Branch)
	assert.Nil(t, itemNamed(r.Snapshot, "Cerveja"))
	assert.Equal(t, model.StatePendingItems, r.State)

	r = h.send(t, "dobra a carne")
	require.Equal(t, BranchItemEdit, r.Branch)
	assert.Equal(t, 12.0, itemNamed(r.Snapshot, "Carne bovina").Quantity)

	r = h.send(t, "muda o refrigerante para 30")
	require.Equal(t, BranchItemEdit, r.Branch)
	assert.Equal(t, 30.0, itemNamed(r.Snapshot, "Refrigerante").Quantity)
	assert.Equal(t, 20, r.Snapshot.Event.Headcount)

	r = h.send(t, "ok")
	require.Equal(t, BranchConfirmItems, r.Branch)
	assert.Equal(t, model.StateCreated, r.State)
	assert.Contains(t, r.CTAs, ctaFinalize)

	r = h.do(t, FinalizeEvent{})
	require.Equal(t, BranchFinalize, r.Branch)
	assert.Equal(t, model.StateFinalized, r.State)

	snap, err := h.store.GetSnapshot(context.Background(), first.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusFinalized, snap.Event.Status)

	assert.Contains(t, h.pub.kinds, model.DomainEventItemsGenerated)
	assert.Contains(t, h.pub.kinds, model.DomainEventItemsEdited)
	assert.Contains(t, h.pub.kinds, model.DomainEventItemsConfirmed)
	assert.Contains(t, h.pub.kinds, model.DomainEventFinalized)
}

func TestForcedGenerationSkipsDate(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)

	r := h.do(t, ForceGenerate{Text: "pizza para 6 pessoas"})
	require.Equal(t, BranchForcedGenerate, r.Branch)
	assert.Equal(t, model.StatePendingItems, r.State)
	require.NotNil(t, r.Snapshot)
	assert.Nil(t, r.Snapshot.Event.Date)
	assert.NotEmpty(t, r.Snapshot.Items)
}

func TestForcedWithoutSlotsAsksToRestate(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)
	r := h.do(t, ForceGenerate{})
	assert.Equal(t, BranchRestate, r.Branch)
	assert.Empty(t, r.EventID)
}

func TestConfirmationWithCoreSlotsGenerates(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)
	h.send(t, "aniversário para 15 pessoas")

	r := h.send(t, "sim")
	assert.Equal(t, BranchConfirmedGenerate, r.Branch)
	assert.Equal(t, model.StatePendingItems, r.State)

	// "não quero" is not an assent.
	h2 := newHarness(t, StrategyHeuristic, nil)
	h2.send(t, "aniversário para 15 pessoas")
	r = h2.send(t, "não quero")
	assert.NotEqual(t, BranchConfirmedGenerate, r.Branch)
}

func TestMissingSlotPrompts(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)
	r := h.send(t, "quero fazer um churrasco")
	assert.Equal(t, BranchAskHeadcount, r.Branch)
	assert.Equal(t, model.StateCollectingCore, r.State)
	assert.Empty(t, r.EventID)

	r = h.send(t, "vinte e cinco")
	assert.Equal(t, BranchAskDate, r.Branch)

	h2 := newHarness(t, StrategyHeuristic, nil)
	r = h2.send(t, "somos 12")
	assert.Equal(t, BranchAskType, r.Branch)
}

func TestGreetingAndDefault(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)
	r := h.send(t, "oi, tudo bem?")
	assert.Equal(t, BranchGreeting, r.Branch)

	r = h.send(t, "como funciona?")
	assert.Equal(t, BranchGreeting, r.Branch)
	assert.Equal(t, msgHelp, r.Message)

	// With history but no LLM answer the default prompt is used.
	r = h.send(t, "hmm")
	assert.Equal(t, BranchDefault, r.Branch)
	assert.Equal(t, msgDefault, r.Message)
	assert.Equal(t, 1, h.llm.count("chat"))
}

func TestChatFallbackWithHistory(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, map[string]string{"chat": "Claro! Que tipo de evento você tem em mente?"})

	r := h.send(t, "blablabla")
	assert.Equal(t, BranchDefault, r.Branch)
	assert.Equal(t, 0, h.llm.count("chat"))

	r = h.send(t, "me dá uma ideia diferente")
	assert.Equal(t, BranchPlanner, r.Branch)
	assert.Equal(t, "Claro! Que tipo de evento você tem em mente?", r.Message)
}

func TestPendingListAnswersFromTemplates(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, map[string]string{"chat": "resposta do modelo"})
	h.send(t, "churrasco para 10 pessoas dia 20/11")

	r := h.send(t, "que horas começa?")
	assert.Equal(t, BranchPendingItems, r.Branch)
	assert.Equal(t, msgPending, r.Message)
	assert.Equal(t, 0, h.llm.count("chat"))
	assert.Equal(t, 0, h.llm.count("planner"))

	r = h.send(t, "tira o abacaxi")
	assert.Equal(t, BranchItemEdit, r.Branch)
	assert.Contains(t, r.Message, "abacaxi")

	r = h.send(t, "faz outra lista")
	assert.Equal(t, BranchRegenerate, r.Branch)
	assert.Equal(t, model.StatePendingItems, r.State)
}

func TestAssentBeforeEditDoesNotConfirm(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)
	first := h.send(t, "Churrasco para 20 pessoas dia 12/12")
	require.Equal(t, BranchGenerate, first.Branch)
	require.NotNil(t, itemNamed(first.Snapshot, "Cerveja"))

	r := h.send(t, "ok, tira a cerveja")
	require.Equal(t, BranchItemEdit, r.Branch)
	assert.Equal(t, model.StatePendingItems, r.State)
	assert.Nil(t, itemNamed(r.Snapshot, "Cerveja"))

	r = h.send(t, "sim, dobra a carne")
	require.Equal(t, BranchItemEdit, r.Branch)
	assert.Equal(t, 12.0, itemNamed(r.Snapshot, "Carne bovina").Quantity)

	r = h.send(t, "pode tirar o refrigerante")
	require.Equal(t, BranchItemEdit, r.Branch)
	assert.Nil(t, itemNamed(r.Snapshot, "Refrigerante"))

	snap, err := h.store.GetSnapshot(context.Background(), first.EventID)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusPendingItems, snap.Event.Status)

	// Plain assent still confirms.
	r = h.send(t, "ok")
	assert.Equal(t, BranchConfirmItems, r.Branch)
	assert.Equal(t, model.StateCreated, r.State)
}

func TestPoliteEditBypassesPlanner(t *testing.T) {
	h := newHarness(t, StrategyPlanner, map[string]string{
		"planner": `{"intent":"create_event","payload":{"event_type":"churrasco","headcount":20,"date":"2026-12-12"}}`,
	})
	first := h.send(t, "churrasco para 20 pessoas dia 12/12")
	require.NotNil(t, first.Snapshot)
	calls := h.llm.count("planner")

	r := h.send(t, "pode tirar a cerveja")
	assert.Equal(t, BranchItemEdit, r.Branch)
	assert.Nil(t, itemNamed(r.Snapshot, "Cerveja"))
	assert.Equal(t, calls, h.llm.count("planner"))
}

func TestHeadcountChangeRegenerates(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)
	first := h.send(t, "churrasco para 10 pessoas dia 20/11")
	require.Equal(t, BranchGenerate, first.Branch)
	h.send(t, "ok")

	r := h.send(t, "agora vão ser 40 pessoas")
	assert.Equal(t, BranchGenerate, r.Branch)
	assert.Equal(t, first.EventID, r.EventID)
	assert.Equal(t, 40, r.Snapshot.Event.Headcount)
	assert.Equal(t, model.EventStatusPendingItems, r.Snapshot.Event.Status)
}

func TestPastDateRejected(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)
	r := h.send(t, "churrasco para 20 pessoas dia 10/01/2025")
	assert.Equal(t, BranchDateRejected, r.Branch)
	assert.Contains(t, r.Message, "já passou")

	c, err := h.store.GetContext(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, c.CollectedData.Date)
	assert.Equal(t, 20, c.CollectedData.Headcount)
}

func TestOrphanEventResetsContext(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)
	h.send(t, "oi")

	missing := "gone"
	state := model.StatePendingItems
	_, err := h.sess.UpdateContext(context.Background(), "u1", session.ContextUpdate{EventID: &missing, State: &state})
	require.NoError(t, err)

	r := h.send(t, "tira a cerveja")
	assert.Equal(t, BranchOrphan, r.Branch)
	assert.Equal(t, model.StateIdle, r.State)
	assert.Equal(t, msgOrphan, r.Message)

	loaded, err := h.sess.LoadUserContext(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, loaded.Context.EventID)
	assert.NotEmpty(t, loaded.History)
	assert.Contains(t, h.pub.kinds, model.DomainEventContextReset)
}

func TestFinishedEventIsNotModified(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)
	first := h.send(t, "churrasco para 10 pessoas dia 20/11")
	h.do(t, ConfirmItems{})
	h.do(t, FinalizeEvent{})

	r := h.send(t, "pizza para 8 pessoas")
	assert.Equal(t, BranchAskDate, r.Branch)
	assert.NotEqual(t, first.EventID, r.EventID)

	snap, err := h.store.GetSnapshot(context.Background(), first.EventID)
	require.NoError(t, err)
	assert.Equal(t, "churrasco", snap.Event.Type)
	assert.Equal(t, model.EventStatusFinalized, snap.Event.Status)
}

func TestActions(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)

	r := h.do(t, ConfirmItems{})
	assert.Equal(t, msgNoEvent, r.Message)

	h.send(t, "churrasco para 10 pessoas")
	r = h.do(t, ListOpenEvents{})
	assert.Equal(t, BranchListEvents, r.Branch)
	require.Len(t, r.Events, 1)
	assert.Contains(t, r.Message, "Churrasco")

	r = h.do(t, FinalizeEvent{})
	assert.Equal(t, msgNoPending, r.Message)

	r = h.do(t, ResetConversation{})
	assert.Equal(t, model.StateIdle, r.State)
	loaded, err := h.sess.LoadUserContext(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, loaded.History)

	r = h.do(t, ClearHistory{})
	assert.Equal(t, BranchClearHistory, r.Branch)
	loaded, err = h.sess.LoadUserContext(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, loaded.History)

	_, err = h.o.Handle(context.Background(), "", SendMessage{Text: "oi"})
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestRegenerateAction(t *testing.T) {
	h := newHarness(t, StrategyHeuristic, nil)
	first := h.send(t, "pizza para 6 pessoas dia 20/11")
	h.do(t, ConfirmItems{})

	r := h.do(t, Regenerate{})
	assert.Equal(t, BranchRegenerate, r.Branch)
	assert.Equal(t, first.EventID, r.EventID)
	assert.Equal(t, model.StatePendingItems, r.State)
}

func TestPlannerStrategy(t *testing.T) {
	h := newHarness(t, StrategyPlanner, map[string]string{
		"planner": `{"intent":"create_event","payload":{"event_type":"churrasco","headcount":30,"date":"2026-11-20","exclude_alcohol":true}}`,
	})

	r := h.send(t, "quero organizar a confraternização da firma")
	require.Equal(t, BranchGenerate, r.Branch)
	require.NotNil(t, r.Snapshot)
	assert.Equal(t, "churrasco", r.Snapshot.Event.Type)
	assert.Equal(t, 30, r.Snapshot.Event.Headcount)
	assert.Equal(t, "2026-11-20", r.Snapshot.Event.DateValue())
	assert.Nil(t, itemNamed(r.Snapshot, "Cerveja"))
	assert.Equal(t, 1, h.llm.count("planner"))
}

func TestPlannerPastDateRejected(t *testing.T) {
	h := newHarness(t, StrategyPlanner, map[string]string{
		"planner": `{"intent":"update_event","payload":{"date":"2026-01-10"}}`,
	})
	r := h.send(t, "muda a data")
	assert.Equal(t, BranchDateRejected, r.Branch)
	assert.Contains(t, r.Message, "10/01/2027")
}

func TestPlannerFailureFallsBackToHeuristics(t *testing.T) {
	h := newHarness(t, StrategyPlanner, map[string]string{"planner": "não sei responder isso"})
	r := h.send(t, "Churrasco para 20 pessoas")
	assert.Equal(t, BranchAskDate, r.Branch)
	assert.Equal(t, 1, h.llm.count("planner"))
}

func TestHighConfidenceEditBypassesPlanner(t *testing.T) {
	h := newHarness(t, StrategyPlanner, map[string]string{
		"planner": `{"intent":"create_event","payload":{"event_type":"churrasco","headcount":10,"date":"2026-11-20"}}`,
	})
	h.send(t, "churrasco")
	require.Equal(t, 1, h.llm.count("planner"))

	r := h.send(t, "tira o gelo")
	assert.Equal(t, BranchItemEdit, r.Branch)
	assert.Equal(t, 1, h.llm.count("planner"))
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("", " oi ")
	require.NoError(t, err)
	assert.Equal(t, SendMessage{Text: "oi"}, a)

	_, err = ParseAction("", "  ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	for name, want := range map[string]Action{
		"force_generate": ForceGenerate{},
		"list_events":    ListOpenEvents{},
		"confirm_items":  ConfirmItems{},
		"finalize_event": FinalizeEvent{},
		"regenerate":     Regenerate{},
		"reset":          ResetConversation{},
		"clear_history":  ClearHistory{},
	} {
		got, err := ParseAction(name, "")
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
		assert.Equal(t, name, got.Name())
	}

	_, err = ParseAction("launch_rockets", "")
	assert.ErrorIs(t, err, ErrUnknownAction)

	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyHeuristic, s)
	_, err = ParseStrategy("magic")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
