// Package debounce coalesces rapid writes per key: each Schedule cancels the
// key's pending write and starts a new delay, so only the last value is
// written once input pauses.
package debounce

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the note edit debounce window.
const DefaultInterval = 250 * time.Millisecond

// WriteFunc persists one value. It runs on a timer goroutine.
type WriteFunc func(ctx context.Context, key, value string) error

type pending struct {
	timer *time.Timer
	value string
	token uint64
}

type Debouncer struct {
	interval time.Duration
	write    WriteFunc
	// OnError, when set, receives failed writes after they are logged.
	OnError func(key string, err error)

	mu      sync.Mutex
	pending map[string]*pending
	// writing serializes writes of the same key; held across write.
	writing map[string]*sync.Mutex
	seq     uint64
	stopped bool
}

func New(interval time.Duration, write WriteFunc) *Debouncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Debouncer{
		interval: interval,
		write:    write,
		pending:  make(map[string]*pending),
		writing:  make(map[string]*sync.Mutex),
	}
}

// Schedule supersedes any pending write for key with value.
func (d *Debouncer) Schedule(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}

	d.seq++
	token := d.seq
	p := &pending{value: value, token: token}
	p.timer = time.AfterFunc(d.interval, func() { d.fire(key, token) })
	d.pending[key] = p
}

func (d *Debouncer) keyLock(key string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.writing[key]
	if !ok {
		l = &sync.Mutex{}
		d.writing[key] = l
	}
	return l
}

// fire writes the value only if token still identifies the latest schedule.
// The token is checked after taking the key's write lock, so a value that
// was superseded while an older write was running is never written.
func (d *Debouncer) fire(key string, token uint64) {
	kl := d.keyLock(key)
	kl.Lock()
	defer kl.Unlock()

	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.token != token {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	d.run(context.Background(), key, p.value)
}

// Cancel drops the pending write for key and waits for a write of key that
// is already running. Callers that write key themselves use it so a stale
// scheduled value cannot land after theirs.
func (d *Debouncer) Cancel(key string) {
	kl := d.keyLock(key)
	kl.Lock()
	defer kl.Unlock()

	d.mu.Lock()
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()
}

func (d *Debouncer) run(ctx context.Context, key, value string) {
	if err := d.write(ctx, key, value); err != nil {
		slog.Warn("debounced write failed", "component", "debounce", "key", key, "error", err)
		if d.OnError != nil {
			d.OnError(key, err)
		}
	}
}

// Pending reports how many keys have a write waiting.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush writes every pending value now, in no particular order.
func (d *Debouncer) Flush(ctx context.Context) {
	d.mu.Lock()
	keys := make([]string, 0, len(d.pending))
	for key, p := range d.pending {
		p.timer.Stop()
		keys = append(keys, key)
	}
	d.mu.Unlock()

	for _, key := range keys {
		d.flushKey(ctx, key)
	}
}

func (d *Debouncer) flushKey(ctx context.Context, key string) {
	kl := d.keyLock(key)
	kl.Lock()
	defer kl.Unlock()

	d.mu.Lock()
	p, ok := d.pending[key]
	if ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if ok {
		d.run(ctx, key, p.value)
	}
}

// Stop abandons pending writes and ignores later Schedule calls.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for _, p := range d.pending {
		p.timer.Stop()
	}
	clear(d.pending)
}
