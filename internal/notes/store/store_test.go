package store

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/scrappr/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/postgres"
)

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	cfg := config.Default().Postgres
	cfg.Host = envOrDefault("TEST_POSTGRES_HOST", "localhost")
	cfg.Database = envOrDefault("TEST_POSTGRES_DB", "scrappr_test")
	if port, err := strconv.Atoi(os.Getenv("TEST_POSTGRES_PORT")); err == nil {
		cfg.Port = port
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg)
	if err != nil {
		t.Skipf("skipping store test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestStore(t *testing.T) (*Store, string) {
	db := skipIfNoPostgres(t)
	s := New(db)
	require.NoError(t, s.EnsureSchema(context.Background()))
	owner := "test-" + uuid.NewString()
	t.Cleanup(func() {
		db.DB.Exec(`DELETE FROM notes WHERE owner = $1`, owner)
	})
	return s, owner
}

func TestStore_CRUD(t *testing.T) {
	s, owner := newTestStore(t)
	ctx := context.Background()
	clock := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	created, err := s.Create(ctx, owner, notes.CreateRequest{Content: "Buy milk", Tags: []string{"home"}})
	require.NoError(t, err)
	assert.Equal(t, clock.UnixMilli(), created.Timestamp)

	got, err := s.Get(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	clock = clock.Add(time.Hour)
	updated, err := s.Update(ctx, owner, created.ID, notes.UpdateRequest{Content: "Buy oat milk"})
	require.NoError(t, err)
	assert.Equal(t, clock.UnixMilli(), updated.Timestamp)
	assert.Equal(t, []string{}, updated.Tags)

	_, err = s.Get(ctx, "someone-else", created.ID)
	assert.ErrorIs(t, err, apperrors.ErrNoteNotFound)

	require.NoError(t, s.Delete(ctx, owner, created.ID))
	assert.ErrorIs(t, s.Delete(ctx, owner, created.ID), apperrors.ErrNoteNotFound)
	_, err = s.Get(ctx, owner, "not-a-uuid")
	assert.ErrorIs(t, err, apperrors.ErrNoteNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s, owner := newTestStore(t)
	ctx := context.Background()
	clock := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	var ids []string
	for i := 0; i < 3; i++ {
		clock = clock.Add(time.Minute)
		n, err := s.Create(ctx, owner, notes.CreateRequest{Content: "note " + strconv.Itoa(i)})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	all, err := s.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	latest, err := s.Latest(ctx, owner, 2)
	require.NoError(t, err)
	assert.Len(t, latest, 2)

	n, err := s.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
