// Package catalog joins the immutable item catalog to the user's overlay of
// ownership flags and notes, keyed by normalized title.
package catalog

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
)

// Overlay key prefixes. Keys with neither prefix are legacy ownership flags;
// they are read but never written.
const (
	OwnedPrefix = "owned:"
	NotesPrefix = "notes:"
)

func OwnedKey(key string) string { return OwnedPrefix + key }
func NotesKey(key string) string { return NotesPrefix + key }

// Store is the persistence the model needs.
type Store interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any) error
	ListKeys(ctx context.Context) ([]string, error)
}

type Model struct {
	store Store
	items []Item

	mu    sync.RWMutex
	owned map[string]bool
	notes map[string]string
}

func NewModel(items []Item, store Store) *Model {
	return &Model{
		store: store,
		items: items,
		owned: make(map[string]bool),
		notes: make(map[string]string),
	}
}

// Items returns the catalog. Callers must not modify the returned slice.
func (m *Model) Items() []Item { return m.items }

// LoadOverlay replaces the in-memory overlay with what the store holds.
// On error the previous overlay is kept.
func (m *Model) LoadOverlay(ctx context.Context) error {
	keys, err := m.store.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("load overlay: %w", err)
	}

	owned := make(map[string]bool)
	notes := make(map[string]string)
	for _, k := range keys {
		v, _, err := m.store.Get(ctx, k)
		if err != nil {
			return fmt.Errorf("load overlay: %w", err)
		}

		switch {
		case strings.HasPrefix(k, OwnedPrefix):
			owned[strings.TrimPrefix(k, OwnedPrefix)] = v == true
		case strings.HasPrefix(k, NotesPrefix):
			notes[strings.TrimPrefix(k, NotesPrefix)] = noteString(v)
		default:
			owned[k] = v == true
		}
	}

	m.mu.Lock()
	m.owned = owned
	m.notes = notes
	m.mu.Unlock()
	return nil
}

// noteString coerces a stored note to text; falsy values become "".
func noteString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if !x {
			return ""
		}
		return "true"
	case float64:
		if x == 0 {
			return ""
		}
	}
	return fmt.Sprint(v)
}

func (m *Model) IsOwned(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owned[key]
}

func (m *Model) NoteFor(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notes[key]
}

// SetOwned persists the flag and then updates memory. A store failure leaves
// memory untouched.
func (m *Model) SetOwned(ctx context.Context, key string, owned bool) error {
	if err := m.store.Set(ctx, OwnedKey(key), owned); err != nil {
		return err
	}
	m.mu.Lock()
	m.owned[key] = owned
	m.mu.Unlock()
	return nil
}

// SetNote updates the in-memory note only; see PersistNote.
func (m *Model) SetNote(key, note string) {
	m.mu.Lock()
	m.notes[key] = note
	m.mu.Unlock()
}

func (m *Model) PersistNote(ctx context.Context, key, note string) error {
	return m.store.Set(ctx, NotesKey(key), note)
}

// Snapshot copies the overlay maps for read-only use.
func (m *Model) Snapshot() (owned map[string]bool, notes map[string]string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.owned), maps.Clone(m.notes)
}
