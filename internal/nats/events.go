package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-assistant/internal/model"
	"github.com/capitalize-ai/event-assistant/pkg/metrics"
)

const (
	// StreamName is the stream holding planner domain events.
	StreamName = "PLANNER_EVENTS"

	// SubjectPrefix is the prefix for all domain event subjects.
	SubjectPrefix = "planner"
)

// Publisher writes domain events to JetStream.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher on client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream creates the domain event stream if it does not exist.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Duplicates:  2 * time.Minute,
		Description: "Event planner side effects (events, item lists, context resets)",
	})
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	return nil
}

var subjectToken = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// EventSubject returns the subject for a domain event of a user.
func EventSubject(userID string, eventType model.DomainEventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, subjectToken.Replace(userID), eventType)
}

// Publish writes ev. The event id doubles as the JetStream message id so
// retries are deduplicated.
func (p *Publisher) Publish(ctx context.Context, ev *model.DomainEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal domain event: %w", err)
	}

	subject := EventSubject(ev.UserID, ev.Type)
	if _, err := p.client.JetStream().Publish(ctx, subject, data, jetstream.WithMsgID(ev.ID)); err != nil {
		metrics.PublishFailuresTotal.WithLabelValues(string(ev.Type)).Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// RefreshStats updates the stream gauges.
func (p *Publisher) RefreshStats(ctx context.Context) error {
	stream, err := p.client.JetStream().Stream(ctx, StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("stream info: %w", err)
	}
	metrics.NATSStreamMessages.WithLabelValues(StreamName).Set(float64(info.State.Msgs))
	metrics.NATSStreamBytes.WithLabelValues(StreamName).Set(float64(info.State.Bytes))
	p.client.logger.Debug("stream stats refreshed",
		zap.Uint64("messages", info.State.Msgs), zap.Uint64("bytes", info.State.Bytes))
	return nil
}
