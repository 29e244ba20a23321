// Package orchestrator is the dialogue state machine. It decides, turn by
// turn, what to ask next, when to generate or edit the shopping list and
// which state to persist.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-assistant/internal/dates"
	"github.com/capitalize-ai/event-assistant/internal/humanize"
	"github.com/capitalize-ai/event-assistant/internal/items"
	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/planner"
	"github.com/capitalize-ai/event-assistant/internal/session"
	"github.com/capitalize-ai/event-assistant/internal/slots"
	"github.com/capitalize-ai/event-assistant/internal/store"
	"github.com/capitalize-ai/event-assistant/pkg/logger"
	"github.com/capitalize-ai/event-assistant/pkg/metrics"
	"github.com/capitalize-ai/event-assistant/pkg/tracing"
)

// Repository is the event and item storage the orchestrator writes to.
type Repository interface {
	store.EventRepository
	store.ItemRepository
}

// Publisher receives domain events. Failures never fail a turn.
type Publisher interface {
	Publish(ctx context.Context, ev *model.DomainEvent) error
}

// Config holds behavior switches.
type Config struct {
	Strategy Strategy
	// GeneratedStatus is written after an item list is generated.
	GeneratedStatus model.EventStatus
}

// Deps are the collaborators of the orchestrator. Planner, Publisher,
// Humanizer, Now and NewID are optional.
type Deps struct {
	Repo      Repository
	Sessions  *session.Manager
	Extractor *slots.Extractor
	Generator *items.Generator
	Planner   *planner.Planner
	Dates     *dates.Validator
	Humanizer *humanize.Wrapper
	Publisher Publisher
	Log       *logger.Logger
	Now       func() time.Time
	NewID     func() string
}

// Orchestrator runs conversational turns.
type Orchestrator struct {
	cfg       Config
	repo      Repository
	sessions  *session.Manager
	extractor *slots.Extractor
	generator *items.Generator
	planner   *planner.Planner
	dates     *dates.Validator
	humanizer *humanize.Wrapper
	publisher Publisher
	log       *logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

// New creates an orchestrator.
func New(cfg Config, d Deps) *Orchestrator {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyHeuristic
	}
	if cfg.GeneratedStatus == "" {
		cfg.GeneratedStatus = model.EventStatusPendingItems
	}
	o := &Orchestrator{
		cfg:       cfg,
		repo:      d.Repo,
		sessions:  d.Sessions,
		extractor: d.Extractor,
		generator: d.Generator,
		planner:   d.Planner,
		dates:     d.Dates,
		humanizer: d.Humanizer,
		publisher: d.Publisher,
		log:       logger.OrNop(d.Log),
		tracer:    tracing.Tracer("orchestrator"),
		now:       d.Now,
		newID:     d.NewID,
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	if o.extractor == nil {
		o.extractor = &slots.Extractor{Now: o.now}
	}
	if o.dates == nil {
		o.dates = &dates.Validator{Now: o.now, MinLeadDays: 2}
	}
	if o.humanizer == nil {
		o.humanizer = humanize.NewWrapper(nil)
	}
	if o.generator == nil {
		o.generator = items.NewGenerator(nil, o.log, o.newID)
	}
	return o
}

// Handle runs one action for userID. Internal failures become a friendly
// retry reply; an error is returned only for invalid input.
func (o *Orchestrator) Handle(ctx context.Context, userID string, action Action) (*Reply, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	if action == nil {
		return nil, ErrUnknownAction
	}

	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "orchestrator.turn", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("action", action.Name()),
		attribute.String("strategy", string(o.cfg.Strategy)),
	))
	defer span.End()

	log := logger.FromContext(ctx, o.log).WithTurn(userID, "").With(zap.String("action", action.Name()))

	var (
		reply *Reply
		err   error
	)
	switch a := action.(type) {
	case SendMessage:
		reply, err = o.converse(ctx, userID, a.Text, false, log)
	case ForceGenerate:
		reply, err = o.converse(ctx, userID, a.Text, true, log)
	case ListOpenEvents:
		reply, err = o.listOpen(ctx, userID)
	case ConfirmItems:
		reply, err = o.confirm(ctx, userID)
	case FinalizeEvent:
		reply, err = o.finalize(ctx, userID)
	case Regenerate:
		reply, err = o.regenerate(ctx, userID, log)
	case ResetConversation:
		reply, err = o.reset(ctx, userID)
	case ClearHistory:
		reply, err = o.clearHistory(ctx, userID)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}

	if err != nil {
		log.Error("turn failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		reply = &Reply{State: model.StateIdle, Message: msgRetry, Branch: BranchError}
	}

	span.SetAttributes(attribute.String("branch", string(reply.Branch)), attribute.String("state", string(reply.State)))
	metrics.RecordTurn(string(o.cfg.Strategy), string(reply.Branch), time.Since(start).Seconds())
	log.Debug("turn handled",
		zap.String("event_id", reply.EventID),
		zap.String("branch", string(reply.Branch)),
		zap.String("state", string(reply.State)),
	)
	return reply, nil
}

// currentEvent returns the snapshot of the user's linked event, falling back
// to the open draft. A nil snapshot means there is no event. errOrphan means
// the linked event can no longer be loaded.
func (o *Orchestrator) currentEvent(ctx context.Context, userID string, c *model.ConversationContext) (*model.Snapshot, error) {
	eventID := c.EventID
	if eventID == "" {
		ev, err := o.repo.GetDraftByUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get draft: %w", err)
		}
		eventID = ev.ID
	}

	snap, err := o.repo.GetSnapshot(ctx, eventID)
	if err != nil {
		o.log.WithTurn(userID, eventID).Warn("linked event unavailable", zap.Error(err))
		return nil, errOrphan
	}
	if snap.Event.UserID != userID {
		o.log.WithTurn(userID, eventID).Warn("linked event owned by another user")
		return nil, errOrphan
	}
	return snap, nil
}

var errOrphan = errors.New("orchestrator: orphan event reference")

// orphan resets the context after a broken event link and asks to retry.
func (o *Orchestrator) orphan(ctx context.Context, userID string) (*Reply, error) {
	if _, err := o.sessions.ResetContextKeepHistory(ctx, userID); err != nil {
		return nil, err
	}
	o.publish(ctx, userID, "", model.DomainEventContextReset, map[string]any{"reason": "orphan_event"})
	o.saveAssistant(ctx, userID, msgOrphan, "")
	return &Reply{State: model.StateIdle, Message: msgOrphan, Branch: BranchOrphan}, nil
}

func (o *Orchestrator) listOpen(ctx context.Context, userID string) (*Reply, error) {
	events, err := o.repo.ListOpenByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list open events: %w", err)
	}
	loaded, err := o.sessions.LoadUserContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Reply{
		State:   loaded.Context.State,
		EventID: loaded.Context.EventID,
		Message: listOpen(events),
		Events:  events,
		Branch:  BranchListEvents,
	}, nil
}

func (o *Orchestrator) confirm(ctx context.Context, userID string) (*Reply, error) {
	loaded, err := o.sessions.LoadUserContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, err := o.currentEvent(ctx, userID, loaded.Context)
	if errors.Is(err, errOrphan) {
		return o.orphan(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return o.simpleReply(ctx, userID, loaded.Context, msgNoEvent, BranchConfirmItems), nil
	}
	switch snap.Event.Status {
	case model.EventStatusPendingItems:
	case model.EventStatusCreated, model.EventStatusFinalized:
		return o.simpleReply(ctx, userID, loaded.Context, msgAlreadyDone, BranchConfirmItems), nil
	default:
		return o.simpleReply(ctx, userID, loaded.Context, msgNoPending, BranchConfirmItems), nil
	}
	reply, err := o.confirmSnapshot(ctx, userID, snap)
	if err != nil {
		return nil, err
	}
	o.commit(ctx, userID, reply, loaded.Context.CollectedData, string(planner.IntentConfirmEvent))
	return reply, nil
}

// confirmSnapshot moves a pending list to created.
func (o *Orchestrator) confirmSnapshot(ctx context.Context, userID string, snap *model.Snapshot) (*Reply, error) {
	ev := snap.Event
	if err := o.repo.SetStatus(ctx, ev.ID, model.EventStatusCreated, o.now()); err != nil {
		return nil, fmt.Errorf("confirm items: %w", err)
	}
	snap.Event.Status = model.EventStatusCreated
	o.publish(ctx, userID, ev.ID, model.DomainEventItemsConfirmed, map[string]any{"items": len(snap.Items)})

	h := o.humanizer.Humanize(humanize.ActionResult{
		Kind: humanize.KindItemsConfirmed, EventType: ev.Type, Headcount: ev.Headcount, Date: ev.DateValue(),
	})
	return &Reply{
		State:            model.StateCreated,
		EventID:          ev.ID,
		Message:          h.Text(),
		Snapshot:         snap,
		CTAs:             []CTA{ctaFinalize},
		SuggestedReplies: h.SuggestedReplies,
		Branch:           BranchConfirmItems,
	}, nil
}

func (o *Orchestrator) finalize(ctx context.Context, userID string) (*Reply, error) {
	loaded, err := o.sessions.LoadUserContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, err := o.currentEvent(ctx, userID, loaded.Context)
	if errors.Is(err, errOrphan) {
		return o.orphan(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return o.simpleReply(ctx, userID, loaded.Context, msgNoEvent, BranchFinalize), nil
	}
	ev := snap.Event
	if ev.Status != model.EventStatusCreated {
		msg := msgConfirmFirst
		if ev.Status.Collecting() {
			msg = msgNoPending
		}
		return o.simpleReply(ctx, userID, loaded.Context, msg, BranchFinalize), nil
	}

	if err := o.repo.SetStatus(ctx, ev.ID, model.EventStatusFinalized, o.now()); err != nil {
		return nil, fmt.Errorf("finalize event: %w", err)
	}
	snap.Event.Status = model.EventStatusFinalized
	o.publish(ctx, userID, ev.ID, model.DomainEventFinalized, nil)

	h := o.humanizer.Humanize(humanize.ActionResult{
		Kind: humanize.KindEventFinalized, EventType: ev.Type, Headcount: ev.Headcount, Date: ev.DateValue(),
	})
	reply := &Reply{
		State:            model.StateFinalized,
		EventID:          ev.ID,
		Message:          h.Text(),
		Snapshot:         snap,
		SuggestedReplies: h.SuggestedReplies,
		Branch:           BranchFinalize,
	}
	o.commit(ctx, userID, reply, loaded.Context.CollectedData, "finalize_event")
	return reply, nil
}

func (o *Orchestrator) regenerate(ctx context.Context, userID string, log *logger.Logger) (*Reply, error) {
	loaded, err := o.sessions.LoadUserContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, err := o.currentEvent(ctx, userID, loaded.Context)
	if errors.Is(err, errOrphan) {
		return o.orphan(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	if snap == nil || snap.Event.Status.Terminal() {
		return o.simpleReply(ctx, userID, loaded.Context, msgNoEvent, BranchRegenerate), nil
	}

	t := &turn{userID: userID, ctx: loaded.Context, snap: snap, data: loaded.Context.CollectedData, redraw: true, log: log}
	t.data = t.data.Merge(model.CollectedData{EventType: snap.Event.Type, Headcount: snap.Event.Headcount, Date: snap.Event.DateValue()})
	if !t.data.HasCore() {
		return o.simpleReply(ctx, userID, loaded.Context, msgRestate, BranchRegenerate), nil
	}
	reply, err := o.generate(ctx, t, BranchRegenerate)
	if err != nil {
		return nil, err
	}
	o.commit(ctx, userID, reply, t.data, string(planner.IntentGenerateItems))
	return reply, nil
}

func (o *Orchestrator) reset(ctx context.Context, userID string) (*Reply, error) {
	if _, err := o.sessions.ResetContextKeepHistory(ctx, userID); err != nil {
		return nil, err
	}
	o.publish(ctx, userID, "", model.DomainEventContextReset, map[string]any{"reason": "user_request"})
	o.saveAssistant(ctx, userID, msgReset, "")
	return &Reply{State: model.StateIdle, Message: msgReset, Branch: BranchReset}, nil
}

func (o *Orchestrator) clearHistory(ctx context.Context, userID string) (*Reply, error) {
	if err := o.sessions.ClearHistory(ctx, userID); err != nil {
		return nil, err
	}
	loaded, err := o.sessions.LoadUserContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Reply{
		State:   loaded.Context.State,
		EventID: loaded.Context.EventID,
		Message: msgHistory,
		Branch:  BranchClearHistory,
	}, nil
}

// simpleReply answers with msg and leaves the context state untouched.
func (o *Orchestrator) simpleReply(ctx context.Context, userID string, c *model.ConversationContext, msg string, branch Branch) *Reply {
	o.saveAssistant(ctx, userID, msg, c.EventID)
	return &Reply{State: c.State, EventID: c.EventID, Message: msg, Branch: branch}
}

// commit persists the assistant message and the resulting context. Errors are
// logged; the reply is still returned.
func (o *Orchestrator) commit(ctx context.Context, userID string, r *Reply, data model.CollectedData, intent string) {
	o.saveAssistant(ctx, userID, r.Message, r.EventID)

	conf := confidence(data)
	eventID := r.EventID
	update := session.ContextUpdate{
		State:         &r.State,
		CollectedData: &data,
		MissingSlots:  data.MissingSlots(),
		Confidence:    &conf,
		EventID:       &eventID,
	}
	if intent != "" {
		update.LastIntent = &intent
	}
	if _, err := o.sessions.UpdateContext(ctx, userID, update); err != nil {
		o.log.Error("failed to save context", zap.String("user_id", userID), zap.Error(err))
	}
}

func (o *Orchestrator) saveAssistant(ctx context.Context, userID, content, eventID string) {
	if content == "" {
		return
	}
	if _, err := o.sessions.SaveMessage(ctx, userID, model.RoleAssistant, content, eventID); err != nil {
		o.log.Error("failed to save assistant message", zap.String("user_id", userID), zap.Error(err))
		return
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
}

func (o *Orchestrator) publish(ctx context.Context, userID, eventID string, kind model.DomainEventType, meta map[string]any) {
	if o.publisher == nil {
		return
	}
	ev := &model.DomainEvent{
		ID:        o.newID(),
		UserID:    userID,
		EventID:   eventID,
		Type:      kind,
		Metadata:  meta,
		CreatedAt: o.now(),
	}
	if err := o.publisher.Publish(ctx, ev); err != nil {
		o.log.Warn("failed to publish domain event", zap.String("type", string(kind)), zap.Error(err))
	}
}

// confidence grows with the number of known core slots.
func confidence(d model.CollectedData) float64 {
	known := 3 - len(d.MissingSlots())
	return model.DefaultConfidence + 0.15*float64(known)
}

// stateFor maps a persisted event status to the dialogue state.
func stateFor(s model.EventStatus) model.ContextState {
	switch s {
	case model.EventStatusPendingItems:
		return model.StatePendingItems
	case model.EventStatusCreated:
		return model.StateCreated
	case model.EventStatusFinalized:
		return model.StateFinalized
	default:
		return model.StateCollectingCore
	}
}
