package kvstore

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process driver used by tests. Bulk selects which key
// listing strategy the Store uses.
type Memory struct {
	Bulk bool
	// OpenGate, when set, blocks Open until it is closed or receives.
	OpenGate chan struct{}

	mu        sync.Mutex
	data      map[string][]byte
	opens     int
	openErrs  []error
	putErrs   map[string]error
	puts      map[string]int
	cursorErr error
}

func NewMemory(bulk bool) *Memory {
	return &Memory{
		Bulk:    bulk,
		data:    make(map[string][]byte),
		putErrs: make(map[string]error),
		puts:    make(map[string]int),
	}
}

func (m *Memory) Name() string   { return "memory" }
func (m *Memory) BulkKeys() bool { return m.Bulk }

// FailOpen makes the next Open call return err.
func (m *Memory) FailOpen(err error) {
	m.mu.Lock()
	m.openErrs = append(m.openErrs, err)
	m.mu.Unlock()
}

// FailPut makes every Put on key return err until cleared with a nil err.
func (m *Memory) FailPut(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.putErrs, key)
		return
	}
	m.putErrs[key] = err
}

func (m *Memory) FailCursor(err error) {
	m.mu.Lock()
	m.cursorErr = err
	m.mu.Unlock()
}

// Opens reports how many times Open succeeded or failed.
func (m *Memory) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Puts reports how many successful writes key has received.
func (m *Memory) Puts(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts[key]
}

// Seed writes raw JSON directly, bypassing any handle.
func (m *Memory) Seed(key, rawJSON string) {
	m.mu.Lock()
	m.data[key] = []byte(rawJSON)
	m.mu.Unlock()
}

func (m *Memory) Open(ctx context.Context) (Handle, error) {
	if m.OpenGate != nil {
		select {
		case <-m.OpenGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++
	if len(m.openErrs) > 0 {
		err := m.openErrs[0]
		m.openErrs = m.openErrs[1:]
		return nil, err
	}
	return &memoryHandle{m: m}, nil
}

type memoryHandle struct {
	m *Memory
}

func (h *memoryHandle) Get(ctx context.Context, key string) ([]byte, error) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	v, ok := h.m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (h *memoryHandle) Put(ctx context.Context, key string, value []byte) error {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	if err := h.m.putErrs[key]; err != nil {
		return err
	}
	h.m.data[key] = append([]byte(nil), value...)
	h.m.puts[key]++
	return nil
}

func (h *memoryHandle) sortedKeys() []string {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	keys := make([]string, 0, len(h.m.data))
	for k := range h.m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (h *memoryHandle) Keys(ctx context.Context) ([]string, error) {
	return h.sortedKeys(), nil
}

func (h *memoryHandle) Cursor(ctx context.Context) (Cursor, error) {
	h.m.mu.Lock()
	err := h.m.cursorErr
	h.m.mu.Unlock()
	return &sliceCursor{keys: h.sortedKeys(), pos: -1, failAt: err}, nil
}

func (h *memoryHandle) Close() error { return nil }

type sliceCursor struct {
	keys   []string
	pos    int
	failAt error
	err    error
}

func (c *sliceCursor) Next() bool {
	if c.err != nil {
		return false
	}
	c.pos++
	if c.failAt != nil && c.pos > 0 {
		c.err = c.failAt
		return false
	}
	return c.pos < len(c.keys)
}

func (c *sliceCursor) Key() string  { return c.keys[c.pos] }
func (c *sliceCursor) Err() error   { return c.err }
func (c *sliceCursor) Close() error { return nil }
