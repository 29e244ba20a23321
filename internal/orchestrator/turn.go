package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/event-assistant/internal/dates"
	"github.com/capitalize-ai/event-assistant/internal/humanize"
	"github.com/capitalize-ai/event-assistant/internal/itemcmd"
	"github.com/capitalize-ai/event-assistant/internal/items"
	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/planner"
	"github.com/capitalize-ai/event-assistant/internal/slots"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
	"github.com/capitalize-ai/event-assistant/pkg/metrics"
)

// turn is the working state of one message.
type turn struct {
	userID  string
	text    string
	forced  bool
	redraw  bool
	expired bool

	ctx     *model.ConversationContext
	history []model.ConversationMessage
	snap    *model.Snapshot

	data    model.CollectedData
	ext     slots.Result
	env     *planner.Envelope
	confirm bool
	changed bool
	notice  string
	intent  string

	log *logger.Logger
}

func (t *turn) event() *model.Event {
	if t.snap == nil {
		return nil
	}
	return &t.snap.Event
}

func (t *turn) eventID() string {
	if t.snap == nil {
		return ""
	}
	return t.snap.Event.ID
}

func (t *turn) hasItems() bool {
	return t.snap != nil && len(t.snap.Items) > 0
}

// converse runs the decision branches for a user message.
func (o *Orchestrator) converse(ctx context.Context, userID, text string, forced bool, log *logger.Logger) (*Reply, error) {
	loaded, err := o.sessions.LoadUserContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	t := &turn{
		userID:  userID,
		text:    text,
		forced:  forced || asksToGenerate(text),
		expired: loaded.SessionExpired,
		ctx:     loaded.Context,
		history: loaded.History,
		data:    loaded.Context.CollectedData,
		log:     log,
	}

	if text != "" {
		if _, err := o.sessions.SaveMessage(ctx, userID, model.RoleUser, text, t.ctx.EventID); err != nil {
			return nil, err
		}
		metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()
	}

	t.snap, err = o.currentEvent(ctx, userID, t.ctx)
	if errors.Is(err, errOrphan) {
		return o.orphan(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	if ev := t.event(); ev != nil {
		if ev.Status.Terminal() {
			// A finished event is never modified; anything new starts over.
			t.snap = nil
			t.data = model.CollectedData{}
		} else {
			t.data = t.data.Merge(model.CollectedData{EventType: ev.Type, Headcount: ev.Headcount, Date: ev.DateValue()})
		}
	}

	reply, err := o.decide(ctx, t)
	if err != nil {
		return nil, err
	}
	reply.SessionExpired = t.expired
	if t.notice != "" && reply.Branch != BranchDateRejected {
		reply.Message = t.notice + "\n\n" + reply.Message
	}
	o.commit(ctx, userID, reply, t.data, t.intent)
	return reply, nil
}

func (o *Orchestrator) decide(ctx context.Context, t *turn) (*Reply, error) {
	// High-confidence edits skip both the heuristics and the LLM. "para 30"
	// reads as a headcount to the extractor, so they run first unless the
	// text talks about people.
	if t.hasItems() && !mentionsPeople(t.text) {
		if tri := itemcmd.PreTriage(t.text); tri.High() {
			if cmd := itemcmd.Parse(t.text); cmd != nil {
				return o.applyEdit(ctx, t, cmd)
			}
		}
	}

	t.ext = o.extractor.Extract(t.text, t.data)
	t.confirm = t.ext.IsConfirmation
	if excludesAlcohol(t.text) {
		t.data.ExcludeAlcohol = true
	}

	if r := o.applySlots(t, t.ext.Data(), t.ext.Found); r != nil {
		return r, nil
	}

	pending := t.event() != nil && t.event().Status == model.EventStatusPendingItems
	if o.cfg.Strategy == StrategyPlanner && o.planner.Available() && !(pending && !t.changed) {
		if r, err := o.consultPlanner(ctx, t); r != nil || err != nil {
			return r, err
		}
	}

	ev := t.event()
	if ev == nil || ev.Status.Collecting() || t.changed {
		if t.changed && ev != nil && !ev.Status.Collecting() {
			t.redraw = true
		}
		if r, err := o.collect(ctx, t); r != nil || err != nil {
			return r, err
		}
	} else if ev.Status == model.EventStatusPendingItems {
		return o.pendingItems(ctx, t)
	}

	if isGreeting(t.text) || isHelp(t.text) {
		msg := msgOnboarding
		if isHelp(t.text) {
			msg = msgHelp
		}
		return o.reply(t, msg, BranchGreeting), nil
	}
	return o.fallback(ctx, t), nil
}

// applySlots merges newly found slot values into the turn, validating any
// new date. It returns a reply only when the date is rejected.
func (o *Orchestrator) applySlots(t *turn, found model.CollectedData, names []string) *Reply {
	prev := t.data
	for _, name := range names {
		switch name {
		case model.SlotEventType:
			t.data.EventType = found.EventType
		case model.SlotHeadcount:
			t.data.Headcount = found.Headcount
		case model.SlotDate:
			v := o.dates.ValidateFutureDate(found.Date)
			if !v.Valid {
				return o.reply(t, v.Message, BranchDateRejected)
			}
			t.data.Date = v.Date
			if v.Warning == dates.WarningTooClose {
				t.notice = v.Message
			}
		}
	}
	if ev := t.event(); ev != nil && !ev.Status.Collecting() {
		t.changed = t.changed ||
			prev.EventType != t.data.EventType ||
			prev.Headcount != t.data.Headcount ||
			prev.Date != t.data.Date
	}
	return nil
}

// consultPlanner merges a planner envelope into the turn. It returns a reply
// when the envelope settles the turn by itself.
func (o *Orchestrator) consultPlanner(ctx context.Context, t *turn) (*Reply, error) {
	env, err := o.planner.Plan(ctx, t.text, o.planContext(t))
	if err != nil {
		t.log.Warn("planner failed, using heuristics", zap.Error(err))
		return nil, nil
	}
	t.env = env
	t.intent = string(env.Intent)

	if r := o.applyPayload(t, env.Payload); r != nil {
		return r, nil
	}

	switch env.Intent {
	case planner.IntentConfirmEvent:
		t.confirm = true
	case planner.IntentGenerateItems:
		t.forced = true
	case planner.IntentListEvents:
		events, err := o.repo.ListOpenByUser(ctx, t.userID)
		if err != nil {
			return nil, fmt.Errorf("list open events: %w", err)
		}
		r := o.reply(t, listOpen(events), BranchListEvents)
		r.Events = events
		return r, nil
	case planner.IntentEditItems:
		if t.hasItems() {
			if cmd := itemcmd.Parse(env.Payload.Command); cmd != nil {
				return o.applyEdit(ctx, t, cmd)
			}
		}
	}
	return nil, nil
}

// applyPayload merges planner slots. LLM dates go through the validator.
func (o *Orchestrator) applyPayload(t *turn, p planner.Payload) *Reply {
	var found model.CollectedData
	var names []string
	if p.EventType != "" {
		found.EventType = slots.MatchEventType(p.EventType)
		if found.EventType == "" {
			found.EventType = strings.ToLower(strings.TrimSpace(p.EventType))
		}
		names = append(names, model.SlotEventType)
	}
	if p.Headcount > 0 {
		found.Headcount = p.Headcount
		names = append(names, model.SlotHeadcount)
	}
	if p.Date != "" {
		found.Date = p.Date
		names = append(names, model.SlotDate)
	}
	if p.Menu != "" {
		t.data.Menu = p.Menu
	}
	if p.Occasion != "" {
		t.data.Occasion = p.Occasion
	}
	if p.ExcludeAlcohol != nil {
		t.data.ExcludeAlcohol = *p.ExcludeAlcohol
	}
	return o.applySlots(t, found, names)
}

// collect runs branches 1 to 4, 6 and 7. A nil reply means none matched.
func (o *Orchestrator) collect(ctx context.Context, t *turn) (*Reply, error) {
	d := t.data
	switch {
	case t.forced && d.HasCore():
		return o.generate(ctx, t, BranchForcedGenerate)
	case t.confirm && d.HasCore():
		return o.generate(ctx, t, BranchConfirmedGenerate)
	case d.HasCore() && d.Date == "":
		if _, err := o.upsertEvent(ctx, t, model.EventStatusCollectingCore); err != nil {
			return nil, err
		}
		r := o.reply(t, askDate(d.EventType, d.Headcount), BranchAskDate)
		r.State = model.StateCollectingCore
		r.CTAs = []CTA{ctaGenerate}
		return r, nil
	case d.HasCore():
		return o.generate(ctx, t, BranchGenerate)
	case d.EventType != "":
		r := o.reply(t, askHeadcount(d.EventType), BranchAskHeadcount)
		r.State = model.StateCollectingCore
		return r, nil
	case d.Headcount > 0:
		r := o.reply(t, askType(d.Headcount), BranchAskType)
		r.State = model.StateCollectingCore
		return r, nil
	case t.forced:
		return o.reply(t, msgRestate, BranchRestate), nil
	}
	return nil, nil
}

// pendingItems answers a turn on a list awaiting confirmation from templates
// only.
func (o *Orchestrator) pendingItems(ctx context.Context, t *turn) (*Reply, error) {
	// An edit wins over assent: "ok, tira a cerveja" must not confirm.
	tri := itemcmd.PreTriage(t.text)
	if tri.IsEditCommand {
		if cmd := itemcmd.Parse(t.text); cmd != nil {
			return o.applyEdit(ctx, t, cmd)
		}
	}

	switch {
	case t.confirm:
		t.intent = string(planner.IntentConfirmEvent)
		return o.confirmSnapshot(ctx, t.userID, t.snap)
	case wantsRegenerate(t.text) || t.forced:
		t.redraw = true
		return o.generate(ctx, t, BranchRegenerate)
	}

	if tri.IsEditCommand {
		r := o.reply(t, msgEditHelp, BranchPendingItems)
		r.CTAs = []CTA{ctaConfirm, ctaRegenerate}
		return r, nil
	}

	r := o.reply(t, msgPending, BranchPendingItems)
	r.Snapshot = t.snap
	r.CTAs = []CTA{ctaConfirm, ctaRegenerate}
	r.SuggestedReplies = []string{"Confirmar", "Tira a cerveja", "Dobra a carne"}
	return r, nil
}

// fallback is branch 9: the planner's chat when there is prior history,
// otherwise the default prompt.
func (o *Orchestrator) fallback(ctx context.Context, t *turn) *Reply {
	if t.env != nil && t.env.Payload.Message != "" {
		return o.reply(t, t.env.Payload.Message, BranchPlanner)
	}
	if len(t.history) > 0 && o.planner.Available() {
		chat, err := o.planner.Chat(ctx, t.text, o.planContext(t))
		if err != nil {
			t.log.Warn("chat fallback failed", zap.Error(err))
		} else {
			if chat.Envelope != nil {
				o.applyPayload(t, chat.Envelope.Payload)
				t.intent = string(chat.Envelope.Intent)
			}
			if msg := strings.TrimSpace(chat.Text); msg != "" {
				return o.reply(t, msg, BranchPlanner)
			}
		}
	}
	return o.reply(t, msgDefault, BranchDefault)
}

func (o *Orchestrator) planContext(t *turn) planner.PlanContext {
	return planner.PlanContext{Event: t.event(), Collected: t.data, History: t.history}
}

// reply builds a reply that keeps the current event and state.
func (o *Orchestrator) reply(t *turn, msg string, branch Branch) *Reply {
	state := t.ctx.State
	if ev := t.event(); ev != nil {
		state = stateFor(ev.Status)
	} else if state != model.StateIdle && state != model.StateCollectingCore {
		state = model.StateIdle
	}
	return &Reply{State: state, EventID: t.eventID(), Message: msg, Branch: branch}
}

// generate creates or updates the event, replaces its items with a fresh
// list and returns the snapshot.
func (o *Orchestrator) generate(ctx context.Context, t *turn, branch Branch) (*Reply, error) {
	created := t.snap == nil
	ev, err := o.upsertEvent(ctx, t, o.cfg.GeneratedStatus)
	if err != nil {
		return nil, err
	}

	list := o.generator.Generate(ctx, items.Request{
		EventType:      t.data.EventType,
		Headcount:      t.data.Headcount,
		Menu:           t.data.Menu,
		Occasion:       t.data.Occasion,
		ExcludeAlcohol: t.data.ExcludeAlcohol,
	})
	for i := range list {
		list[i].EventID = ev.ID
	}
	if err := o.repo.ReplaceAllForEvent(ctx, ev.ID, list); err != nil {
		return nil, fmt.Errorf("replace items: %w", err)
	}
	snap, err := o.repo.GetSnapshot(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("reload snapshot: %w", err)
	}
	t.snap = snap
	if t.intent == "" {
		t.intent = string(planner.IntentGenerateItems)
	}
	o.publish(ctx, t.userID, ev.ID, model.DomainEventItemsGenerated, map[string]any{
		"items": len(list), "branch": string(branch), "created": created,
	})

	h := o.humanizer.Humanize(humanize.ActionResult{
		Kind:      humanize.KindItemsGenerated,
		Message:   describeItems(snap),
		EventType: ev.Type,
		Headcount: ev.Headcount,
		Date:      ev.DateValue(),
	})
	ctas := []CTA{ctaRegenerate}
	if snap.Event.Status == model.EventStatusPendingItems {
		ctas = []CTA{ctaConfirm, ctaRegenerate}
	}
	return &Reply{
		State:            stateFor(snap.Event.Status),
		EventID:          ev.ID,
		Message:          h.Text(),
		Snapshot:         snap,
		CTAs:             ctas,
		SuggestedReplies: h.SuggestedReplies,
		Branch:           branch,
	}, nil
}

// upsertEvent writes the turn's slots to its event, creating it on first use.
// Status only moves forward unless the turn is a redraw.
func (o *Orchestrator) upsertEvent(ctx context.Context, t *turn, status model.EventStatus) (*model.Event, error) {
	now := o.now()
	var ev model.Event
	if cur := t.event(); cur != nil {
		ev = *cur
		if model.CanTransition(ev.Status, status, t.redraw) {
			ev.Status = status
		}
	} else {
		name, err := o.uniqueName(ctx, t.userID, t.data)
		if err != nil {
			return nil, err
		}
		ev = model.Event{ID: o.newID(), UserID: t.userID, Name: name, Status: status, CreatedAt: now}
	}

	ev.Type = t.data.EventType
	ev.Headcount = t.data.Headcount
	ev.Date = nil
	if t.data.Date != "" {
		d := t.data.Date
		ev.Date = &d
	}
	ev.UpdatedAt = now

	if err := o.repo.Upsert(ctx, &ev); err != nil {
		return nil, fmt.Errorf("upsert event: %w", err)
	}
	o.publish(ctx, t.userID, ev.ID, model.DomainEventUpserted, map[string]any{"status": string(ev.Status)})

	if t.snap == nil {
		t.snap = &model.Snapshot{Event: ev}
	} else {
		t.snap.Event = ev
	}
	return &ev, nil
}

// uniqueName derives an event name from its type and date, suffixing a
// counter when the user already has one with that name.
func (o *Orchestrator) uniqueName(ctx context.Context, userID string, d model.CollectedData) (string, error) {
	base := titleCase(d.EventType)
	if d.Date != "" {
		base += " " + dates.FormatBR(d.Date)
	}
	name := base
	for i := 2; i < 100; i++ {
		taken, err := o.repo.NameTaken(ctx, userID, name)
		if err != nil {
			return "", fmt.Errorf("check event name: %w", err)
		}
		if !taken {
			return name, nil
		}
		name = fmt.Sprintf("%s (%d)", base, i)
	}
	return name + " " + o.newID()[:8], nil
}

func titleCase(s string) string {
	if s == "" {
		return "Evento"
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// applyEdit runs an item command against the current list.
func (o *Orchestrator) applyEdit(ctx context.Context, t *turn, cmd *itemcmd.Command) (*Reply, error) {
	t.intent = string(planner.IntentEditItems)
	updated, outcome, err := itemcmd.Apply(t.snap.Items, cmd, o.newID)
	switch {
	case errors.Is(err, itemcmd.ErrItemNotFound):
		metrics.ItemEditsTotal.WithLabelValues(string(cmd.Operation), "not_found").Inc()
		name := cmd.ItemName
		if name == "" {
			name = cmd.Category
		}
		r := o.reply(t, itemNotFound(name), BranchItemEdit)
		r.Snapshot = t.snap
		return r, nil
	case errors.Is(err, itemcmd.ErrNothingToChange):
		metrics.ItemEditsTotal.WithLabelValues(string(cmd.Operation), "noop").Inc()
		return o.reply(t, msgEditHelp, BranchItemEdit), nil
	case err != nil:
		return nil, fmt.Errorf("apply item command: %w", err)
	}

	eventID := t.eventID()
	if err := o.repo.ReplaceAllForEvent(ctx, eventID, updated); err != nil {
		metrics.ItemEditsTotal.WithLabelValues(string(cmd.Operation), "error").Inc()
		return nil, fmt.Errorf("replace items: %w", err)
	}
	metrics.ItemEditsTotal.WithLabelValues(string(cmd.Operation), "ok").Inc()
	snap, err := o.repo.GetSnapshot(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("reload snapshot: %w", err)
	}
	t.snap = snap
	o.publish(ctx, t.userID, eventID, model.DomainEventItemsEdited, map[string]any{
		"operation": string(outcome.Operation), "affected": outcome.Affected,
	})

	r := o.reply(t, editDone(string(outcome.Operation), outcome.Affected)+"\n\n"+describeItems(snap), BranchItemEdit)
	r.Snapshot = snap
	if snap.Event.Status == model.EventStatusPendingItems {
		r.CTAs = []CTA{ctaConfirm, ctaRegenerate}
	}
	return r, nil
}
