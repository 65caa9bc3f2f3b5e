package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Handle when a key has no value.
var ErrNotFound = errors.New("key not found")

// Driver is the durable storage primitive behind a Store.
type Driver interface {
	Name() string
	// BulkKeys reports whether handles opened by this driver can enumerate
	// all keys in one call. Probed once when the Store is built.
	BulkKeys() bool
	Open(ctx context.Context) (Handle, error)
}

// Handle is an open connection to the durable namespace.
type Handle interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Keys enumerates every key in one call. Only used when the driver
	// reports BulkKeys.
	Keys(ctx context.Context) ([]string, error)
	// Cursor walks the keys one step at a time.
	Cursor(ctx context.Context) (Cursor, error)
	Close() error
}

type Cursor interface {
	Next() bool
	Key() string
	Err() error
	Close() error
}
