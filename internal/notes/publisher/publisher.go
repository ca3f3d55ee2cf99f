// Package publisher announces note changes on Kafka and, on the consuming
// side, turns those announcements into cache invalidations.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/metrics"
)

// EventWriter is the producer side of pkg/kafka.
type EventWriter interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Invalidator drops cached suggestions for an owner.
type Invalidator interface {
	InvalidateOwner(ctx context.Context, owner string) error
}

// Publisher writes notes.Event messages keyed by owner, so one owner's
// events stay ordered on a single partition.
type Publisher struct {
	writer  EventWriter
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a Publisher. m may be nil.
func New(writer EventWriter, m *metrics.Metrics) *Publisher {
	return &Publisher{
		writer:  writer,
		metrics: m,
		now:     time.Now,
		logger:  slog.Default().With("component", "note-publisher"),
	}
}

// Publish announces that noteID changed.
func (p *Publisher) Publish(ctx context.Context, eventType notes.EventType, owner, noteID string) error {
	event := notes.Event{
		Type:   eventType,
		NoteID: noteID,
		Owner:  owner,
		At:     p.now().UTC(),
	}
	err := p.writer.Publish(ctx, kafka.Event{Key: owner, Value: event})
	p.record("published", err)
	if err != nil {
		p.logger.Error("failed to publish note event",
			"type", eventType,
			"owner", owner,
			"note_id", noteID,
			"error", err,
		)
		return fmt.Errorf("publishing %s event for note %s: %w", eventType, noteID, err)
	}
	return nil
}

func (p *Publisher) record(direction string, err error) {
	if p.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.NoteEventsTotal.WithLabelValues(direction, status).Inc()
}

// HandleEvents returns a consumer callback that invalidates the owner's
// cached suggestions for every note event. Undecodable messages are logged
// and skipped so they do not block the partition. m may be nil.
func HandleEvents(inv Invalidator, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "note-events")
	p := &Publisher{metrics: m}
	return func(ctx context.Context, key, value []byte) error {
		event, err := kafka.DecodeJSON[notes.Event](value)
		if err != nil {
			p.record("consumed", err)
			logger.Warn("dropping malformed note event", "key", string(key), "error", err)
			return nil
		}
		owner := event.Owner
		if owner == "" {
			owner = string(key)
		}
		err = inv.InvalidateOwner(ctx, owner)
		p.record("consumed", err)
		if err != nil {
			return fmt.Errorf("invalidating suggestions for %s: %w", owner, err)
		}
		logger.Debug("suggestions invalidated", "owner", owner, "type", event.Type, "note_id", event.NoteID)
		return nil
	}
}
