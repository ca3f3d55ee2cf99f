// Package filestore serves notes from a local YAML or JSON file and reloads
// them when the file changes. The CLI uses it in place of the database.
//
// Two layouts are accepted: a document with a top-level "notes" list, or a
// bare list of notes. JSON files are read through the YAML decoder.
package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
)

const defaultDebounce = 100 * time.Millisecond

type document struct {
	Notes []notes.Note `yaml:"notes"`
}

// Store holds the last successfully parsed snapshot of a notes file.
type Store struct {
	path     string
	debounce time.Duration
	mu       sync.RWMutex
	notes    []notes.Note
	logger   *slog.Logger
}

// Open reads path once. The file must exist and parse.
func Open(path string) (*Store, error) {
	s := &Store{
		path:     path,
		debounce: defaultDebounce,
		logger:   slog.Default().With("component", "note-file", "path", path),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the file. On error the previous snapshot is kept.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading notes file: %w", err)
	}
	parsed, err := Parse(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.notes = parsed
	s.mu.Unlock()
	s.logger.Debug("notes loaded", "count", len(parsed))
	return nil
}

// List returns a copy of the current snapshot. The file holds a single
// collection, so owner is ignored.
func (s *Store) List(_ context.Context, _ string) ([]notes.Note, error) {
	return s.snapshot(), nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

func (s *Store) snapshot() []notes.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]notes.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Parse decodes a notes document. Notes with blank content are dropped and
// notes without an ID get their 1-based position as ID.
func Parse(data []byte) ([]notes.Note, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return []notes.Note{}, nil
	}

	var raw []notes.Note
	switch top := root.Content[0]; top.Kind {
	case yaml.SequenceNode:
		if err := top.Decode(&raw); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var doc document
		if err := top.Decode(&doc); err != nil {
			return nil, err
		}
		raw = doc.Notes
	default:
		return nil, fmt.Errorf("expected a list of notes or a document with a notes key")
	}

	out := make([]notes.Note, 0, len(raw))
	for i, n := range raw {
		if strings.TrimSpace(n.Content) == "" {
			continue
		}
		if n.ID == "" {
			n.ID = strconv.Itoa(i + 1)
		}
		if n.Tags == nil {
			n.Tags = []string{}
		}
		out = append(out, n)
	}
	return out, nil
}

// Watch reloads the file after it changes and passes each new snapshot to
// onChange. It watches the parent directory so editors that replace the file
// by rename are seen, and collapses bursts of events. It blocks until ctx is
// done.
func (s *Store) Watch(ctx context.Context, onChange func([]notes.Note)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(s.path), err)
	}
	base := filepath.Base(s.path)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watch error", "error", err)
		case <-fire:
			fire = nil
			if err := s.Reload(); err != nil {
				s.logger.Warn("reload failed, keeping previous notes", "error", err)
				continue
			}
			if onChange != nil {
				onChange(s.snapshot())
			}
		}
	}
}
