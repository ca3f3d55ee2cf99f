package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	apperrors "github.com/Adithya-Monish-Kumar-K/scrappr/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/middleware"
)

type memRepo struct {
	mu          sync.Mutex
	notes       map[string]map[string]notes.Note
	nextID      int
	clock       int64
	err         error
	latestCalls int
}

func newMemRepo() *memRepo {
	return &memRepo{notes: make(map[string]map[string]notes.Note)}
}

func (m *memRepo) Create(_ context.Context, owner string, req notes.CreateRequest) (notes.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return notes.Note{}, m.err
	}
	m.nextID++
	m.clock++
	n := notes.Note{ID: fmt.Sprintf("n%d", m.nextID), Content: req.Content, Tags: req.Tags, Timestamp: m.clock}
	if m.notes[owner] == nil {
		m.notes[owner] = make(map[string]notes.Note)
	}
	m.notes[owner][n.ID] = n
	return n, nil
}

func (m *memRepo) Get(_ context.Context, owner, id string) (notes.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[owner][id]
	if !ok {
		return notes.Note{}, apperrors.Newf(apperrors.ErrNoteNotFound, http.StatusNotFound, "note %s", id)
	}
	return n, nil
}

func (m *memRepo) Update(_ context.Context, owner, id string, req notes.UpdateRequest) (notes.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[owner][id]
	if !ok {
		return notes.Note{}, apperrors.Newf(apperrors.ErrNoteNotFound, http.StatusNotFound, "note %s", id)
	}
	m.clock++
	n.Content, n.Tags, n.Timestamp = req.Content, req.Tags, m.clock
	m.notes[owner][id] = n
	return n, nil
}

func (m *memRepo) Delete(_ context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[owner][id]; !ok {
		return apperrors.Newf(apperrors.ErrNoteNotFound, http.StatusNotFound, "note %s", id)
	}
	delete(m.notes[owner], id)
	return nil
}

func (m *memRepo) List(_ context.Context, owner string) ([]notes.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]notes.Note, 0, len(m.notes[owner]))
	for _, n := range m.notes[owner] {
		out = append(out, n)
	}
	return out, nil
}

func (m *memRepo) Latest(ctx context.Context, owner string, limit int) ([]notes.Note, error) {
	all, err := m.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.latestCalls++
	m.mu.Unlock()
	return notes.Latest(all, limit), nil
}

func (m *memRepo) Count(_ context.Context, owner string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return len(m.notes[owner]), nil
}

type publishedEvent struct {
	Type  notes.EventType
	Owner string
	ID    string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType notes.EventType, owner, noteID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{eventType, owner, noteID})
	return p.err
}

type recordingInvalidator struct {
	owners []string
}

func (i *recordingInvalidator) InvalidateOwner(_ context.Context, owner string) error {
	i.owners = append(i.owners, owner)
	return nil
}

type fixture struct {
	repo    *memRepo
	pub     *recordingPublisher
	inv     *recordingInvalidator
	metrics *metrics.Metrics
	server  http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMemRepo(),
		pub:     &recordingPublisher{},
		inv:     &recordingInvalidator{},
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	mux := http.NewServeMux()
	New(f.repo, f.pub, f.inv, f.metrics).Register(mux)
	f.server = middleware.Owner(mux)
	return f
}

func (f *fixture) do(method, path, owner, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if owner != "" {
		req.Header.Set(middleware.OwnerHeader, owner)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeNote(t *testing.T, rec *httptest.ResponseRecorder) notes.Note {
	t.Helper()
	var n notes.Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &n))
	return n
}

func TestCreateGetUpdateDelete(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/api/v1/notes", "alice", `{"content":"buy milk","tags":["shopping"," shopping "]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeNote(t, rec)
	assert.Equal(t, "buy milk", created.Content)
	assert.Equal(t, []string{"shopping"}, created.Tags)

	rec = f.do(http.MethodGet, "/api/v1/notes/"+created.ID, "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeNote(t, rec))

	rec = f.do(http.MethodGet, "/api/v1/notes/"+created.ID, "bob", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPut, "/api/v1/notes/"+created.ID, "alice", `{"content":"buy oat milk"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeNote(t, rec)
	assert.Equal(t, "buy oat milk", updated.Content)
	assert.Greater(t, updated.Timestamp, created.Timestamp)

	rec = f.do(http.MethodDelete, "/api/v1/notes/"+created.ID, "alice", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(http.MethodDelete, "/api/v1/notes/"+created.ID, "alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []publishedEvent{
		{notes.EventCreated, "alice", created.ID},
		{notes.EventUpdated, "alice", created.ID},
		{notes.EventDeleted, "alice", created.ID},
	}, f.pub.events)
	assert.Equal(t, []string{"alice", "alice", "alice"}, f.inv.owners)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NoteWritesTotal.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NoteWritesTotal.WithLabelValues("delete", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NoteWritesTotal.WithLabelValues("delete", "error")))
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/api/v1/notes", "", `{"content":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "content")

	rec = f.do(http.MethodPost, "/api/v1/notes", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid JSON body"}`, rec.Body.String())

	huge := `{"content":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec = f.do(http.MethodPost, "/api/v1/notes", "", huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	assert.Empty(t, f.pub.events)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture()
	f.pub.err = errors.New("broker down")

	rec := f.do(http.MethodPost, "/api/v1/notes", "", `{"content":"still saved"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, f.pub.events, 1)
	assert.Equal(t, []string{notes.DefaultOwner}, f.inv.owners)
}

func TestListNewestFirstWithTagAndLimit(t *testing.T) {
	f := newFixture()
	for _, body := range []string{
		`{"content":"first","tags":["work"]}`,
		`{"content":"second"}`,
		`{"content":"third","tags":["work"]}`,
	} {
		require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/notes", "alice", body).Code)
	}

	list := func(path, owner string) ([]string, int) {
		t.Helper()
		rec := f.do(http.MethodGet, path, owner, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Notes []notes.Note `json:"notes"`
			Count int          `json:"count"`
			Total int          `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, len(body.Notes), body.Count)
		out := make([]string, 0, len(body.Notes))
		for _, n := range body.Notes {
			out = append(out, n.Content)
		}
		return out, body.Total
	}

	got, total := list("/api/v1/notes", "alice")
	assert.Equal(t, []string{"third", "second", "first"}, got)
	assert.Equal(t, 3, total)

	got, total = list("/api/v1/notes?tag=work", "alice")
	assert.Equal(t, []string{"third", "first"}, got)
	assert.Equal(t, 3, total)
	assert.Zero(t, f.repo.latestCalls)

	got, total = list("/api/v1/notes?limit=1", "alice")
	assert.Equal(t, []string{"third"}, got)
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, f.repo.latestCalls, "untagged limited listing uses Latest")

	got, total = list("/api/v1/notes?tag=work&limit=1", "alice")
	assert.Equal(t, []string{"third"}, got)
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, f.repo.latestCalls)

	got, total = list("/api/v1/notes", "bob")
	assert.Empty(t, got)
	assert.Zero(t, total)

	rec := f.do(http.MethodGet, "/api/v1/notes?limit=zero", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRepositoryFailureIsOpaque(t *testing.T) {
	f := newFixture()
	f.repo.err = errors.New("pq: connection refused")

	rec := f.do(http.MethodGet, "/api/v1/notes", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/v1/notes", "", `{"content":"x y"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NoteWritesTotal.WithLabelValues("create", "error")))
}
