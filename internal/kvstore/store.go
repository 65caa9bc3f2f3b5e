// Package kvstore is an asynchronous key-value store over a durable driver.
//
// The driver handle is opened lazily by the first operation that needs it.
// Callers arriving while that open is in flight wait for it instead of
// opening again. A failed open is handed to every waiter and not cached, so
// the next operation tries again.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrStore wraps every failure of a backing operation.
	ErrStore  = errors.New("store operation failed")
	ErrClosed = errors.New("store closed")
)

type keyLister func(ctx context.Context, h Handle) ([]string, error)

type Store struct {
	driver   Driver
	listKeys keyLister

	open   singleflight.Group
	mu     sync.RWMutex
	handle Handle
	closed bool
}

// New builds a Store for driver. The key listing strategy is chosen here
// from the driver's capabilities; no I/O happens until the first call.
func New(driver Driver) *Store {
	s := &Store{driver: driver, listKeys: cursorKeys}
	if driver.BulkKeys() {
		s.listKeys = bulkKeys
	}
	return s
}

func (s *Store) Driver() string { return s.driver.Name() }

func (s *Store) current() (Handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.handle, nil
}

func (s *Store) ensureOpen(ctx context.Context) (Handle, error) {
	h, err := s.current()
	if err != nil || h != nil {
		return h, err
	}

	v, err, _ := s.open.Do("open", func() (any, error) {
		if h, err := s.current(); err != nil || h != nil {
			return h, err
		}
		h, err := s.driver.Open(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			_ = h.Close()
			return nil, ErrClosed
		}
		s.handle = h
		slog.Debug("store opened", "component", "kvstore", "driver", s.driver.Name())
		return h, nil
	})
	if err != nil {
		if errors.Is(err, ErrClosed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: open %s: %w", ErrStore, s.driver.Name(), err)
	}
	return v.(Handle), nil
}

// Get returns the decoded value stored at key. A missing key is reported
// with ok == false and no error.
func (s *Store) Get(ctx context.Context, key string) (value any, ok bool, err error) {
	h, err := s.ensureOpen(ctx)
	if err != nil {
		return nil, false, err
	}

	raw, err := h.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %q: %w", ErrStore, key, err)
	}

	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, fmt.Errorf("%w: decode %q: %w", ErrStore, key, err)
	}
	return value, true, nil
}

// Set stores value at key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	h, err := s.ensureOpen(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %q: %w", ErrStore, key, err)
	}
	if err := h.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("%w: set %q: %w", ErrStore, key, err)
	}
	return nil
}

func (s *Store) ListKeys(ctx context.Context) ([]string, error) {
	h, err := s.ensureOpen(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := s.listKeys(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("%w: list keys: %w", ErrStore, err)
	}
	return keys, nil
}

// Ping opens the handle if needed. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.ensureOpen(ctx)
	return err
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.handle == nil {
		return nil
	}
	err := s.handle.Close()
	s.handle = nil
	return err
}

func bulkKeys(ctx context.Context, h Handle) ([]string, error) {
	keys, err := h.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func cursorKeys(ctx context.Context, h Handle) ([]string, error) {
	cur, err := h.Cursor(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	keys := []string{}
	for cur.Next() {
		keys = append(keys, cur.Key())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
