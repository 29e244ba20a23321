// Package postgres implements the store contracts on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/internal/store"
)

// Config holds the connection settings.
type Config struct {
	URL            string
	MaxConnections int32
}

// Store is a pgx-backed store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open creates a connection pool and verifies connectivity.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConnections > 0 {
		pc.MaxConns = cfg.MaxConnections
	}
	pc.MinConns = 1
	pc.MaxConnLifetime = time.Hour
	pc.MaxConnIdleTime = 30 * time.Minute
	pc.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

const eventColumns = `id, user_id, name, type, headcount, to_char(date, 'YYYY-MM-DD'), status, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var ev model.Event
	if err := row.Scan(&ev.ID, &ev.UserID, &ev.Name, &ev.Type, &ev.Headcount, &ev.Date, &ev.Status, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &ev, nil
}

func (s *Store) GetDraftByUser(ctx context.Context, userID string) (*model.Event, error) {
	ev, err := scanEvent(s.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE user_id = $1 AND status <> 'finalized'
		ORDER BY updated_at DESC
		LIMIT 1`, userID))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get draft event: %w", err)
	}
	return ev, err
}

func (s *Store) ListOpenByUser(ctx context.Context, userID string) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE user_id = $1 AND status <> 'finalized'
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list open events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

func (s *Store) GetSnapshot(ctx context.Context, eventID string) (*model.Snapshot, error) {
	ev, err := scanEvent(s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	snap := &model.Snapshot{Event: *ev, Items: []model.Item{}, Participants: []model.Participant{}}

	rows, err := s.pool.Query(ctx, `
		SELECT id, event_id, name, quantity, unit, estimated_value, category, priority
		FROM items
		WHERE event_id = $1
		ORDER BY position`, eventID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	snap.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Item, error) {
		var it model.Item
		err := row.Scan(&it.ID, &it.EventID, &it.Name, &it.Quantity, &it.Unit, &it.EstimatedValue, &it.Category, &it.Priority)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT id, event_id, name, contact FROM participants WHERE event_id = $1 ORDER BY name`, eventID)
	if err != nil {
		return nil, fmt.Errorf("get participants: %w", err)
	}
	snap.Participants, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Participant, error) {
		var p model.Participant
		err := row.Scan(&p.ID, &p.EventID, &p.Name, &p.Contact)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan participants: %w", err)
	}
	return snap, nil
}

func (s *Store) Upsert(ctx context.Context, ev *model.Event) error {
	status := ev.Status
	if status == "" {
		status = model.EventStatusDraft
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (id, user_id, name, type, headcount, date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::date, $7, COALESCE($8, now()), COALESCE($9, now()))
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			headcount = EXCLUDED.headcount,
			date = EXCLUDED.date,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		ev.ID, ev.UserID, ev.Name, ev.Type, ev.Headcount, ev.DateValue(), string(status),
		nullTime(ev.CreatedAt), nullTime(ev.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, eventID string, status model.EventStatus, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE events SET status = $2, updated_at = $3 WHERE id = $1`, eventID, string(status), at)
	if err != nil {
		return fmt.Errorf("set event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) NameTaken(ctx context.Context, userID, name string) (bool, error) {
	var taken bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM events WHERE user_id = $1 AND lower(trim(name)) = lower(trim($2)))`,
		userID, name).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check event name: %w", err)
	}
	return taken, nil
}

// ReplaceAllForEvent swaps the item set inside one transaction.
func (s *Store) ReplaceAllForEvent(ctx context.Context, eventID string, items []model.Item) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var id string
		if err := tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM items WHERE event_id = $1`, eventID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if len(items) == 0 {
			return nil
		}

		rows := make([][]any, len(items))
		for i, it := range items {
			rows[i] = []any{it.ID, eventID, i, it.Name, it.Quantity, it.Unit, it.EstimatedValue, it.Category, string(it.Priority)}
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"items"},
			[]string{"id", "event_id", "position", "name", "quantity", "unit", "estimated_value", "category", "priority"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("insert items: %w", err)
		}
		return nil
	})
}

// AddParticipant attaches a guest to an event.
func (s *Store) AddParticipant(ctx context.Context, p model.Participant) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO participants (id, event_id, name, contact) VALUES ($1, $2, $3, $4)`,
		p.ID, p.EventID, p.Name, p.Contact)
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

func (s *Store) GetContext(ctx context.Context, userID string) (*model.ConversationContext, error) {
	var c model.ConversationContext
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, state, collected_data, missing_slots, confidence_level, last_intent,
		       event_id, summary, history_since, last_interaction_at, created_at, updated_at
		FROM conversation_contexts
		WHERE user_id = $1`, userID).Scan(
		&c.UserID, &c.State, &c.CollectedData, &c.MissingSlots, &c.ConfidenceLevel, &c.LastIntent,
		&c.EventID, &c.Summary, &c.HistorySince, &c.LastInteractionAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get context: %w", err)
	}
	return &c, nil
}

func (s *Store) UpsertContext(ctx context.Context, c *model.ConversationContext) error {
	missing := c.MissingSlots
	if missing == nil {
		missing = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_contexts (user_id, state, collected_data, missing_slots, confidence_level,
			last_intent, event_id, summary, history_since, last_interaction_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			state = EXCLUDED.state,
			collected_data = EXCLUDED.collected_data,
			missing_slots = EXCLUDED.missing_slots,
			confidence_level = EXCLUDED.confidence_level,
			last_intent = EXCLUDED.last_intent,
			event_id = EXCLUDED.event_id,
			summary = EXCLUDED.summary,
			history_since = EXCLUDED.history_since,
			last_interaction_at = EXCLUDED.last_interaction_at,
			updated_at = EXCLUDED.updated_at`,
		c.UserID, string(c.State), c.CollectedData, missing, c.ConfidenceLevel,
		c.LastIntent, c.EventID, c.Summary, c.HistorySince, c.LastInteractionAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert context: %w", err)
	}
	return nil
}

func (s *Store) DeleteContext(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM conversation_contexts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete context: %w", err)
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, m *model.ConversationMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_messages (id, user_id, role, content, event_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.UserID, string(m.Role), m.Content, m.EventID, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, userID string, since time.Time, limit int) ([]model.ConversationMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, role, content, event_id, created_at
		FROM (
			SELECT id, user_id, role, content, event_id, created_at, seq
			FROM conversation_messages
			WHERE user_id = $1 AND created_at >= $2
			ORDER BY created_at DESC, seq DESC
			LIMIT NULLIF($3, 0)
		) recent
		ORDER BY created_at, seq`, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ConversationMessage, error) {
		var m model.ConversationMessage
		err := row.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.EventID, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	return msgs, nil
}

func (s *Store) DeleteMessages(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM conversation_messages WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
