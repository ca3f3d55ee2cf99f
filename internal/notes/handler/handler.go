package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/scrappr/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/middleware"
)

const maxBodyBytes = 2 * validator.MaxContentBytes

type Repository interface {
	Create(ctx context.Context, owner string, req notes.CreateRequest) (notes.Note, error)
	Get(ctx context.Context, owner, id string) (notes.Note, error)
	Update(ctx context.Context, owner, id string, req notes.UpdateRequest) (notes.Note, error)
	Delete(ctx context.Context, owner, id string) error
	List(ctx context.Context, owner string) ([]notes.Note, error)
	Latest(ctx context.Context, owner string, limit int) ([]notes.Note, error)
	Count(ctx context.Context, owner string) (int, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType notes.EventType, owner, noteID string) error
}

type Invalidator interface {
	InvalidateOwner(ctx context.Context, owner string) error
}

type Handler struct {
	repo        Repository
	publisher   EventPublisher
	invalidator Invalidator
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New wires the notes API. publisher, invalidator and m may be nil.
func New(repo Repository, publisher EventPublisher, invalidator Invalidator, m *metrics.Metrics) *Handler {
	return &Handler{
		repo:        repo,
		publisher:   publisher,
		invalidator: invalidator,
		metrics:     m,
		logger:      slog.Default().With("component", "notes-handler"),
	}
}

// Register mounts the notes routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/notes", h.Create)
	mux.HandleFunc("GET /api/v1/notes", h.List)
	mux.HandleFunc("GET /api/v1/notes/{id}", h.Get)
	mux.HandleFunc("PUT /api/v1/notes/{id}", h.Update)
	mux.HandleFunc("DELETE /api/v1/notes/{id}", h.Delete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req notes.CreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.validate(w, validator.ValidateCreate(&req)) {
		return
	}
	owner := middleware.GetOwner(r.Context())
	note, err := h.repo.Create(r.Context(), owner, req)
	h.recordWrite("create", err)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.changed(r.Context(), notes.EventCreated, owner, note.ID)
	h.writeJSON(w, http.StatusCreated, note)
}

// List returns the owner's notes newest first, optionally filtered by tag
// and truncated to limit. total is the owner's note count before filtering.
// An untagged limited listing is served by the repository's Latest query.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	ctx := r.Context()
	owner := middleware.GetOwner(ctx)
	tag := r.URL.Query().Get("tag")

	var result []notes.Note
	if tag == "" && limit > 0 {
		latest, err := h.repo.Latest(ctx, owner, limit)
		if err != nil {
			h.writeAppError(w, r, err)
			return
		}
		result = latest
	} else {
		all, err := h.repo.List(ctx, owner)
		if err != nil {
			h.writeAppError(w, r, err)
			return
		}
		result = notes.Latest(notes.FilterByTag(all, tag), limit)
	}
	total, err := h.repo.Count(ctx, owner)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"notes": result,
		"count": len(result),
		"total": total,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	note, err := h.repo.Get(r.Context(), middleware.GetOwner(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, note)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req notes.UpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !h.validate(w, validator.ValidateUpdate(&req)) {
		return
	}
	owner := middleware.GetOwner(r.Context())
	note, err := h.repo.Update(r.Context(), owner, r.PathValue("id"), req)
	h.recordWrite("update", err)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.changed(r.Context(), notes.EventUpdated, owner, note.ID)
	h.writeJSON(w, http.StatusOK, note)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	id := r.PathValue("id")
	err := h.repo.Delete(r.Context(), owner, id)
	h.recordWrite("delete", err)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.changed(r.Context(), notes.EventDeleted, owner, id)
	w.WriteHeader(http.StatusNoContent)
}

// changed drops this instance's cached suggestions and tells the other
// instances. Neither failure undoes the write.
func (h *Handler) changed(ctx context.Context, eventType notes.EventType, owner, id string) {
	log := logger.FromContext(ctx)
	if h.invalidator != nil {
		if err := h.invalidator.InvalidateOwner(ctx, owner); err != nil {
			log.Warn("cache invalidation failed", "error", err)
		}
	}
	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, eventType, owner, id); err != nil {
			log.Warn("note event not published", "note_id", id, "error", err)
		}
	}
	log.Info("note changed", "type", eventType, "note_id", id)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) validate(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return false
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
	return false
}

func (h *Handler) recordWrite(op string, err error) {
	if h.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.metrics.NoteWritesTotal.WithLabelValues(op, status).Inc()
}

func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("note request failed", "error", err, "status_code", status)
		h.writeError(w, status, http.StatusText(status))
		return
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
