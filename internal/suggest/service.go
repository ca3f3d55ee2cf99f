// Package suggest turns a note collection and what the user is looking at
// into a suggestion list. It picks the scoring mode and limit for each view,
// and falls back to the most recent notes when nothing matches.
package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest/ranker"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/scrappr/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/tracing"
)

// View selects how many suggestions are produced and which scoring mode is
// used.
type View string

const (
	// ViewFull is the full-page notes list shown next to a page.
	ViewFull View = "full"
	// ViewSummary is the three-item floating popup.
	ViewSummary View = "summary"
	// ViewInline is the widget shown while typing in an editor.
	ViewInline View = "inline"
)

// ParseView maps a request parameter to a View. The empty string selects
// ViewFull.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewFull:
		return ViewFull, nil
	case ViewSummary:
		return ViewSummary, nil
	case ViewInline:
		return ViewInline, nil
	}
	return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown view %q", s)
}

// Mode tells the caller how to title the list.
type Mode string

const (
	ModeSuggestions Mode = "suggestions"
	ModeLatest      Mode = "latest"
)

// NoteSource provides the current note snapshot for an owner.
type NoteSource interface {
	List(ctx context.Context, owner string) ([]notes.Note, error)
}

// Request describes one suggestion lookup. In the inline view Query holds
// the sentence being written and Word the word under the cursor. Limit 0
// selects the view default.
type Request struct {
	Owner string
	View  View
	Query string
	Word  string
	Limit int
}

// Result is the response for one lookup.
type Result struct {
	View       View                `json:"view"`
	Mode       Mode                `json:"mode"`
	Query      string              `json:"query"`
	Terms      []string            `json:"terms"`
	Results    []ranker.ScoredNote `json:"results"`
	Candidates int                 `json:"candidates"`
}

// Service runs suggestion lookups against a NoteSource.
type Service struct {
	source  NoteSource
	weights ranker.Weights
	cfg     config.SuggestConfig
	now     func() time.Time
	logger  *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now, which feeds the recency boost.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(source NoteSource, weights ranker.Weights, cfg config.SuggestConfig, opts ...Option) *Service {
	s := &Service{
		source:  source,
		weights: weights,
		cfg:     cfg,
		now:     time.Now,
		logger:  slog.Default().With("component", "suggest-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limit resolves the effective result count for a view: the requested limit
// if positive, else the view default, capped at MaxResults.
func (s *Service) Limit(view View, requested int) int {
	limit := requested
	if limit <= 0 {
		switch view {
		case ViewSummary:
			limit = s.cfg.SummaryLimit
		case ViewInline:
			limit = s.cfg.InlineLimit
		default:
			limit = s.cfg.FullLimit
		}
	}
	if s.cfg.MaxResults > 0 && limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}
	return limit
}

// Suggest loads the owner's notes and ranks them for the requested view.
func (s *Service) Suggest(ctx context.Context, req Request) (*Result, error) {
	view, err := ParseView(string(req.View))
	if err != nil {
		return nil, err
	}
	owner := req.Owner
	if owner == "" {
		owner = notes.DefaultOwner
	}

	loadCtx, loadSpan := tracing.StartChildSpan(ctx, "load_notes")
	all, err := s.source.List(loadCtx, owner)
	loadSpan.SetAttr("notes", len(all))
	loadSpan.End()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSourceFailure, err)
	}

	_, rankSpan := tracing.StartChildSpan(ctx, "rank")
	defer rankSpan.End()
	rankSpan.SetAttr("view", string(view))

	limit := s.Limit(view, req.Limit)
	result := &Result{
		View:       view,
		Mode:       ModeSuggestions,
		Query:      req.Query,
		Candidates: len(all),
	}

	switch view {
	case ViewInline:
		result.Terms = tokenizer.Terms(req.Query)
		result.Results = ranker.SuggestInline(req.Word, req.Query, all, s.weights.Inline, limit)
	case ViewSummary:
		query := strings.TrimSpace(req.Query)
		if utf8.RuneCountInString(query) >= s.cfg.SummaryMinQueryLen {
			s.rank(result, query, all, limit)
		}
	default:
		s.rank(result, req.Query, all, limit)
	}

	if len(result.Results) == 0 && view != ViewInline {
		result.Mode = ModeLatest
		result.Results = latest(all, limit)
	}
	if result.Results == nil {
		result.Results = []ranker.ScoredNote{}
	}
	rankSpan.SetAttr("returned", len(result.Results))
	rankSpan.SetAttr("mode", string(result.Mode))

	s.logger.Debug("suggestions computed",
		"view", view,
		"mode", result.Mode,
		"candidates", len(all),
		"returned", len(result.Results),
	)
	return result, nil
}

func (s *Service) rank(result *Result, query string, all []notes.Note, limit int) {
	result.Terms = tokenizer.Terms(query)
	if len(result.Terms) == 0 {
		return
	}
	params := ranker.Params{Weights: s.weights, Now: s.now()}
	result.Results = ranker.SuggestScored(query, all, params, limit)
}

func latest(all []notes.Note, limit int) []ranker.ScoredNote {
	recent := notes.Latest(all, limit)
	out := make([]ranker.ScoredNote, len(recent))
	for i, n := range recent {
		out[i] = ranker.ScoredNote{Note: n}
	}
	return out
}
