package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/metrics"
)

// EventWriter publishes a single event.
type EventWriter interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector buffers suggestion events in a channel and publishes them one at
// a time from a background goroutine. Events are keyed by owner.
type Collector struct {
	writer  EventWriter
	metrics *metrics.Metrics
	eventCh chan SuggestionEvent
	logger  *slog.Logger
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewCollector(writer EventWriter, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		writer:  writer,
		metrics: m,
		eventCh: make(chan SuggestionEvent, bufferSize),
		logger:  slog.Default().With("component", "analytics-collector"),
		done:    make(chan struct{}),
	}
}

// Start launches the publish loop. When ctx ends, whatever is buffered is
// published with a short deadline before the loop exits.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.drainRemaining(drainCtx)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track queues event, dropping it when the buffer is full or the collector
// is closed.
func (c *Collector) Track(event SuggestionEvent) {
	if event.Type == "" {
		event.Type = EventSuggestion
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped("collector closed")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.dropped("buffer full")
	}
}

// Close stops accepting events and waits for the buffered ones to be
// published. Start must have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event SuggestionEvent) {
	if err := c.writer.Publish(ctx, kafka.Event{Key: event.Owner, Value: event}); err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}

func (c *Collector) drainRemaining(ctx context.Context) {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, event)
		default:
			return
		}
	}
}

func (c *Collector) dropped(reason string) {
	if c.metrics != nil {
		c.metrics.AnalyticsDropped.Inc()
	}
	c.logger.Warn("analytics event dropped", "reason", reason)
}
