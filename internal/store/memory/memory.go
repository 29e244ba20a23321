// Package memory is an in-process store used when no database is configured
// and by tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/store"
)

// Store keeps everything in maps guarded by one lock. Values are copied on
// the way in and out.
type Store struct {
	mu           sync.RWMutex
	events       map[string]model.Event
	items        map[string][]model.Item
	participants map[string][]model.Participant
	contexts     map[string]model.ConversationContext
	messages     map[string][]model.ConversationMessage
	seq          map[string]int64
	next         int64
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		events:       make(map[string]model.Event),
		items:        make(map[string][]model.Item),
		participants: make(map[string][]model.Participant),
		contexts:     make(map[string]model.ConversationContext),
		messages:     make(map[string][]model.ConversationMessage),
		seq:          make(map[string]int64),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

func (s *Store) GetDraftByUser(_ context.Context, userID string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	open := s.openLocked(userID)
	if len(open) == 0 {
		return nil, store.ErrNotFound
	}
	ev := open[0]
	return &ev, nil
}

func (s *Store) ListOpenByUser(_ context.Context, userID string) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openLocked(userID), nil
}

// openLocked returns the user's non-finalized events, newest update first,
// later writes winning ties.
func (s *Store) openLocked(userID string) []model.Event {
	var out []model.Event
	for _, ev := range s.events {
		if ev.UserID == userID && !ev.Status.Terminal() {
			out = append(out, copyEvent(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out
}

func (s *Store) GetSnapshot(_ context.Context, eventID string) (*model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[eventID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &model.Snapshot{
		Event:        copyEvent(ev),
		Items:        append([]model.Item{}, s.items[eventID]...),
		Participants: append([]model.Participant{}, s.participants[eventID]...),
	}, nil
}

func (s *Store) Upsert(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.events[event.ID]; ok && event.CreatedAt.IsZero() {
		event.CreatedAt = prev.CreatedAt
	}
	s.events[event.ID] = copyEvent(*event)
	s.next++
	s.seq[event.ID] = s.next
	return nil
}

func (s *Store) SetStatus(_ context.Context, eventID string, status model.EventStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[eventID]
	if !ok {
		return store.ErrNotFound
	}
	ev.Status = status
	ev.UpdatedAt = at
	s.events[eventID] = ev
	s.next++
	s.seq[eventID] = s.next
	return nil
}

func (s *Store) NameTaken(_ context.Context, userID, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := strings.ToLower(strings.TrimSpace(name))
	for _, ev := range s.events {
		if ev.UserID == userID && strings.ToLower(strings.TrimSpace(ev.Name)) == want {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ReplaceAllForEvent(_ context.Context, eventID string, items []model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return store.ErrNotFound
	}
	cp := make([]model.Item, len(items))
	for i, it := range items {
		it.EventID = eventID
		cp[i] = it
	}
	s.items[eventID] = cp
	return nil
}

// AddParticipant attaches a guest to an event.
func (s *Store) AddParticipant(_ context.Context, p model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[p.EventID]; !ok {
		return store.ErrNotFound
	}
	s.participants[p.EventID] = append(s.participants[p.EventID], p)
	return nil
}

func (s *Store) GetContext(_ context.Context, userID string) (*model.ConversationContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contexts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyContext(c), nil
}

func (s *Store) UpsertContext(_ context.Context, c *model.ConversationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[c.UserID] = *copyContext(*c)
	return nil
}

func (s *Store) DeleteContext(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, userID)
	return nil
}

func (s *Store) AppendMessage(_ context.Context, m *model.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.UserID] = append(s.messages[m.UserID], *m)
	return nil
}

func (s *Store) RecentMessages(_ context.Context, userID string, since time.Time, limit int) ([]model.ConversationMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.messages[userID]
	out := make([]model.ConversationMessage, 0, len(all))
	for _, m := range all {
		if !m.CreatedAt.Before(since) {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *Store) DeleteMessages(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, userID)
	return nil
}

func copyEvent(ev model.Event) model.Event {
	if ev.Date != nil {
		d := *ev.Date
		ev.Date = &d
	}
	return ev
}

func copyContext(c model.ConversationContext) *model.ConversationContext {
	c.MissingSlots = append([]string(nil), c.MissingSlots...)
	if c.CollectedData.Extra != nil {
		extra := make(map[string]any, len(c.CollectedData.Extra))
		for k, v := range c.CollectedData.Extra {
			extra[k] = v
		}
		c.CollectedData.Extra = extra
	}
	return &c
}
