package sync

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventOwnedUpdate = "owned.update"
	EventNoteUpdate  = "note.update"
	EventImportDone  = "import.done"
	EventSnapshot    = "overlay.snapshot"
)

// Snapshot is the whole overlay, sent to a client when it connects.
type Snapshot struct {
	Owned []string          `json:"owned"`
	Notes map[string]string `json:"notes"`
}

// OverlayEvent is pushed to every connected client when the overlay changes.
type OverlayEvent struct {
	ID    string    `json:"id"`
	Type  string    `json:"type"`
	Key   string    `json:"key,omitempty"`
	Owned *bool     `json:"owned,omitempty"`
	Note  *string   `json:"note,omitempty"`
	Count int       `json:"count,omitempty"`
	At    time.Time `json:"at"`

	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

func OwnedChanged(key string, owned bool) OverlayEvent {
	return OverlayEvent{ID: uuid.NewString(), Type: EventOwnedUpdate, Key: key, Owned: &owned, At: time.Now().UTC()}
}

func NoteChanged(key, note string) OverlayEvent {
	return OverlayEvent{ID: uuid.NewString(), Type: EventNoteUpdate, Key: key, Note: &note, At: time.Now().UTC()}
}

func ImportDone(count int) OverlayEvent {
	return OverlayEvent{ID: uuid.NewString(), Type: EventImportDone, Count: count, At: time.Now().UTC()}
}

func SnapshotTaken(s Snapshot) OverlayEvent {
	return OverlayEvent{ID: uuid.NewString(), Type: EventSnapshot, Snapshot: &s, At: time.Now().UTC()}
}
