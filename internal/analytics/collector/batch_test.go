package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/metrics"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (r *batchRecorder) PublishBatch(_ context.Context, events []kafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, events)
	return nil
}

func (r *batchRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func TestBatchCollector_FlushOnSize(t *testing.T) {
	rec := &batchRecorder{}
	bc := NewBatchCollector(rec, 3, time.Hour, nil)

	bc.Track(analytics.SuggestionEvent{Owner: "alice"})
	bc.Track(analytics.SuggestionEvent{Owner: "bob"})
	assert.Equal(t, 2, bc.BufferLen())
	assert.Equal(t, 0, rec.total())

	bc.Track(analytics.SuggestionEvent{Owner: "carol"})
	require.Eventually(t, func() bool { return rec.total() == 3 }, time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	first := rec.batches[0][0]
	assert.Equal(t, "alice", first.Key)
	assert.Equal(t, analytics.EventSuggestion, first.Value.(analytics.SuggestionEvent).Type)
}

func TestBatchCollector_FinalFlushOnCancel(t *testing.T) {
	rec := &batchRecorder{}
	bc := NewBatchCollector(rec, 100, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)

	bc.Track(analytics.SuggestionEvent{Owner: "alice"})
	cancel()
	bc.Close()

	assert.Equal(t, 1, rec.total())
	assert.Equal(t, 0, bc.BufferLen())
}

func TestBatchCollector_RequeueAndCap(t *testing.T) {
	rec := &batchRecorder{err: errors.New("broker down")}
	m := metrics.New(prometheus.NewRegistry())
	bc := NewBatchCollector(rec, 2, time.Hour, m)

	for i := 0; i < 7; i++ {
		bc.mu.Lock()
		bc.buffer = append(bc.buffer, kafka.Event{Key: "k"})
		bc.mu.Unlock()
	}
	bc.Flush(context.Background())

	assert.Equal(t, 6, bc.BufferLen())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalyticsDropped))

	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()
	bc.Flush(context.Background())
	assert.Equal(t, 6, rec.total())
	assert.Equal(t, 0, bc.BufferLen())
}
