// Package notes defines the note record shared by the ranking engine, the
// stores, and the HTTP API, plus the request and event schemas used when
// notes change.
package notes

import (
	"sort"
	"time"
)

// DefaultOwner is used when a request carries no owner.
const DefaultOwner = "default"

// Note is a saved text snippet. Timestamp is milliseconds since the Unix
// epoch; it is set at creation and refreshed on edit.
type Note struct {
	ID        string   `json:"id" yaml:"id"`
	Content   string   `json:"content" yaml:"content"`
	Timestamp int64    `json:"timestamp" yaml:"timestamp"`
	Tags      []string `json:"tags" yaml:"tags"`
}

// HasTag reports whether the note carries tag.
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CreateRequest is the JSON body accepted when saving a new note.
type CreateRequest struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// UpdateRequest is the JSON body accepted when editing a note.
type UpdateRequest struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// EventType names a change to the note collection.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is the Kafka payload published after a note changes.
type Event struct {
	Type   EventType `json:"type"`
	NoteID string    `json:"note_id"`
	Owner  string    `json:"owner"`
	At     time.Time `json:"at"`
}

// Latest returns up to n notes, newest first. Notes with equal timestamps
// keep their input order. The input slice is not modified.
func Latest(all []Note, n int) []Note {
	out := make([]Note, len(all))
	copy(out, all)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// FilterByTag returns the notes carrying tag. An empty tag returns all notes.
func FilterByTag(all []Note, tag string) []Note {
	if tag == "" {
		return all
	}
	out := make([]Note, 0, len(all))
	for _, n := range all {
		if n.HasTag(tag) {
			out = append(out, n)
		}
	}
	return out
}
