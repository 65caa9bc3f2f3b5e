// Package tracker runs one tracking session: it owns the catalog model and
// view state, reacts to user events one at a time, and hands back the
// recomputed visible rows after every event.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"schematics/internal/catalog"
	"schematics/internal/debounce"
	synchub "schematics/internal/sync"
	"schematics/internal/transfer"
	"schematics/internal/view"
)

type CatalogLoader interface {
	Load(ctx context.Context, source string) ([]catalog.Item, error)
}

type Store interface {
	catalog.Store
	Ping(ctx context.Context) error
	Close() error
}

// Publisher receives overlay changes; the sync hub implements it.
type Publisher interface {
	Publish(ev synchub.OverlayEvent)
}

type Options struct {
	Source       string
	NoteDebounce time.Duration
	Publisher    Publisher
}

// Row is one visible catalog item with its overlay values.
type Row struct {
	Key      string            `json:"key"`
	Title    string            `json:"title"`
	ImageURL string            `json:"image_url,omitempty"`
	PageURL  string            `json:"page_url,omitempty"`
	Owned    bool              `json:"owned"`
	Note     string            `json:"note"`
	Extra    map[string]string `json:"extra,omitempty"`
}

type Session struct {
	mu     sync.Mutex
	model  *catalog.Model
	store  Store
	engine *view.Engine
	state  *view.State
	notes  *debounce.Debouncer
	pub    Publisher
}

// Start loads the catalog and the persisted overlay and computes the first
// view. A catalog failure is fatal and returned as is.
func Start(ctx context.Context, loader CatalogLoader, store Store, opts Options) (*Session, error) {
	items, err := loader.Load(ctx, opts.Source)
	if err != nil {
		return nil, err
	}

	s := &Session{
		model:  catalog.NewModel(items, store),
		store:  store,
		engine: view.NewEngine(),
		state:  view.NewState(),
		pub:    opts.Publisher,
	}
	s.notes = debounce.New(opts.NoteDebounce, s.persistNote)

	if err := s.model.LoadOverlay(ctx); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	s.recompute()

	owned, _ := s.model.Snapshot()
	slog.InfoContext(ctx, "session started", "component", "tracker",
		"source", opts.Source, "items", len(items), "overlay_owned", len(owned))
	return s, nil
}

func (s *Session) persistNote(ctx context.Context, key, note string) error {
	if err := s.model.PersistNote(ctx, key, note); err != nil {
		return err
	}
	s.publish(synchub.NoteChanged(key, note))
	return nil
}

func (s *Session) publish(ev synchub.OverlayEvent) {
	if s.pub != nil {
		s.pub.Publish(ev)
	}
}

// recompute must be called with s.mu held (or before the session is shared).
func (s *Session) recompute() []Row {
	visible, rows := s.rowsFor(s.state.Query())
	s.state.Visible = visible
	return rows
}

func (s *Session) rowsFor(q view.Query) ([]catalog.Item, []Row) {
	owned, notes := s.model.Snapshot()
	visible := s.engine.ComputeVisible(s.model.Items(), q, owned, notes)

	rows := make([]Row, 0, len(visible))
	for _, it := range visible {
		key := it.Key()
		rows = append(rows, Row{
			Key:      key,
			Title:    it.Title,
			ImageURL: it.ImageURL,
			PageURL:  it.PageURL,
			Owned:    owned[key],
			Note:     notes[key],
			Extra:    it.Extra,
		})
	}
	return visible, rows
}

// View is the current view state together with its visible rows.
type View struct {
	Search    string `json:"search"`
	HideOwned bool   `json:"hide_owned"`
	SortAsc   bool   `json:"sort_asc"`
	Total     int    `json:"total"`
	Items     []Row  `json:"items"`
}

func (s *Session) view(rows []Row) View {
	return View{
		Search:    s.state.Search,
		HideOwned: s.state.HideOwned,
		SortAsc:   s.state.SortAsc,
		Total:     len(rows),
		Items:     rows,
	}
}

// Query returns the session's current view query.
func (s *Session) Query() view.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Query()
}

// VisibleFor computes the rows for q without changing the session's view
// state.
func (s *Session) VisibleFor(q view.Query) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, rows := s.rowsFor(q)
	return View{
		Search:    q.Search,
		HideOwned: q.HideOwned,
		SortAsc:   q.SortAsc,
		Total:     len(rows),
		Items:     rows,
	}
}

func (s *Session) Visible() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(s.recompute())
}

func (s *Session) SetSearch(text string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Search = text
	return s.view(s.recompute())
}

func (s *Session) ToggleHideOwned() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.HideOwned = !s.state.HideOwned
	return s.view(s.recompute())
}

func (s *Session) ToggleSort() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SortAsc = !s.state.SortAsc
	return s.view(s.recompute())
}

// SetOwned persists the flag immediately. On a store error the in-memory
// flag is unchanged and the error is returned with the current view.
func (s *Session) SetOwned(ctx context.Context, key string, owned bool) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = catalog.Normalize(key)
	if err := s.model.SetOwned(ctx, key, owned); err != nil {
		slog.WarnContext(ctx, "set owned failed", "component", "tracker", "key", key, "error", err)
		return s.view(s.recompute()), err
	}
	s.publish(synchub.OwnedChanged(key, owned))
	return s.view(s.recompute()), nil
}

// EditNote updates the note in memory at once and schedules the debounced
// write; only the last edit within the interval reaches the store.
func (s *Session) EditNote(key, note string) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = catalog.Normalize(key)
	s.model.SetNote(key, note)
	s.notes.Schedule(key, note)
	return s.view(s.recompute())
}

func (s *Session) Import(ctx context.Context, text string) (transfer.Result, View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := transfer.Import(ctx, importOverlay{s}, text)
	if res.Count > 0 {
		s.publish(synchub.ImportDone(res.Count))
	}
	if err != nil {
		slog.WarnContext(ctx, "import failed", "component", "tracker", "imported", res.Count, "error", err)
	} else {
		slog.InfoContext(ctx, "import done", "component", "tracker", "imported", res.Count, "notes", res.HasNotes)
	}
	return res, s.view(s.recompute()), err
}

// importOverlay writes imported notes through the model after dropping any
// debounced edit of the same key, so an older draft cannot land after the
// imported note.
type importOverlay struct {
	s *Session
}

func (o importOverlay) SetOwned(ctx context.Context, key string, owned bool) error {
	return o.s.model.SetOwned(ctx, key, owned)
}

func (o importOverlay) SetNote(key, note string) {
	o.s.model.SetNote(key, note)
}

func (o importOverlay) PersistNote(ctx context.Context, key, note string) error {
	o.s.notes.Cancel(key)
	if err := o.s.model.PersistNote(ctx, key, note); err != nil {
		// keep retrying the note memory still shows
		o.s.notes.Schedule(key, o.s.model.NoteFor(key))
		return err
	}
	return nil
}

func (s *Session) Export() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned, notes := s.model.Snapshot()
	return transfer.Export(s.model.Items(), owned, notes)
}

// SyncSnapshot is the overlay as sent to newly connected sync clients:
// owned keys in order and every non-empty note.
func (s *Session) SyncSnapshot() synchub.Snapshot {
	owned, notes := s.model.Snapshot()
	snap := synchub.Snapshot{Owned: make([]string, 0, len(owned)), Notes: make(map[string]string, len(notes))}
	for key, ok := range owned {
		if ok {
			snap.Owned = append(snap.Owned, key)
		}
	}
	slices.Sort(snap.Owned)
	for key, note := range notes {
		if note != "" {
			snap.Notes[key] = note
		}
	}
	return snap
}

func (s *Session) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PendingNotes reports note writes still waiting for their debounce window.
func (s *Session) PendingNotes() int { return s.notes.Pending() }

// Close writes any pending notes and closes the store.
func (s *Session) Close(ctx context.Context) error {
	s.notes.Flush(ctx)
	s.notes.Stop()
	return s.store.Close()
}
