package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantIDs []string
		wantErr bool
	}{
		{
			name: "document",
			input: `
notes:
  - id: a
    content: Buy milk
    timestamp: 1700000000000
    tags: [home]
  - id: b
    content: Finish report
`,
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "bare list",
			input:   "- content: one\n- content: two\n",
			wantIDs: []string{"1", "2"},
		},
		{
			name:    "json",
			input:   `{"notes": [{"id": "x", "content": "hello", "timestamp": 5}]}`,
			wantIDs: []string{"x"},
		},
		{
			name:    "blank content dropped",
			input:   "- content: '   '\n- content: kept\n",
			wantIDs: []string{"2"},
		},
		{name: "empty file", input: "", wantIDs: []string{}},
		{name: "scalar", input: "just text", wantErr: true},
		{name: "broken", input: "notes: [", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			ids := make([]string, len(got))
			for i, n := range got {
				ids[i] = n.ID
				assert.NotNil(t, n.Tags)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestParse_Fields(t *testing.T) {
	got, err := Parse([]byte("notes:\n  - id: a\n    content: Buy milk\n    timestamp: 1700000000000\n    tags: [home, errands]\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, notes.Note{ID: "a", Content: "Buy milk", Timestamp: 1700000000000, Tags: []string{"home", "errands"}}, got[0])
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOpenAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.yaml")
	writeFile(t, path, "- content: first\n")

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	writeFile(t, path, "- content: first\n- content: second\n")
	require.NoError(t, s.Reload())
	all, err := s.List(context.Background(), "anyone")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	writeFile(t, path, "notes: [")
	assert.Error(t, s.Reload())
	assert.Equal(t, 2, s.Len(), "failed reload keeps the previous snapshot")

	_, err = Open(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.yaml")
	writeFile(t, path, "- content: first\n")
	s, err := Open(path)
	require.NoError(t, err)
	s.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan []notes.Note, 16)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(ns []notes.Note) { changes <- ns })
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case ns := <-changes:
			assert.Len(t, ns, 2)
			cancel()
			require.NoError(t, <-done)
			return
		case <-tick.C:
			writeFile(t, path, "- content: first\n- content: second\n")
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
