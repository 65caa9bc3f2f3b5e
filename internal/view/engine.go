// Package view derives the visible, ordered catalog rows from the current
// search text, hide-owned flag and sort direction.
package view

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"schematics/internal/catalog"
)

type Query struct {
	Search    string
	HideOwned bool
	SortAsc   bool
}

// Engine is safe for concurrent use; the collator it wraps is not.
type Engine struct {
	mu  sync.Mutex
	col *collate.Collator
}

func NewEngine() *Engine {
	return &Engine{col: collate.New(language.Und, collate.IgnoreCase)}
}

// ComputeVisible filters and sorts items. It never modifies its inputs and
// always returns a fresh slice.
func (e *Engine) ComputeVisible(items []catalog.Item, q Query, owned map[string]bool, notes map[string]string) []catalog.Item {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		key := it.Key()
		if search != "" &&
			!strings.Contains(strings.ToLower(it.Title), search) &&
			!strings.Contains(strings.ToLower(notes[key]), search) {
			continue
		}
		if q.HideOwned && owned[key] {
			continue
		}
		out = append(out, it)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	slices.SortStableFunc(out, func(a, b catalog.Item) int {
		c := e.col.CompareString(a.Title, b.Title)
		if !q.SortAsc {
			c = -c
		}
		return c
	})
	return out
}
