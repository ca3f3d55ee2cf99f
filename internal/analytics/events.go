package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest"
)

type EventType string

const (
	EventSuggestion EventType = "suggestion"
)

// SuggestionEvent describes one answered suggestion lookup. View and Mode
// carry the suggest package's string values.
type SuggestionEvent struct {
	Type       EventType `json:"type"`
	View       string    `json:"view"`
	Mode       string    `json:"mode"`
	Query      string    `json:"query"`
	Terms      []string  `json:"terms"`
	Returned   int       `json:"returned"`
	Candidates int       `json:"candidates"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Owner      string    `json:"owner"`
	RequestID  string    `json:"request_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// Fallback reports whether the lookup matched nothing and the caller was
// shown the latest notes instead.
func (e SuggestionEvent) Fallback() bool {
	return e.Mode == string(suggest.ModeLatest)
}

// Tracker accepts suggestion events without blocking the request path.
type Tracker interface {
	Track(event SuggestionEvent)
}
