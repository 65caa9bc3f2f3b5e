package kvstore

import (
	"context"
	"database/sql"
	"fmt"

	"schematics/pkg/database"
)

// SQLite keeps the overlay namespace in a single sqlite table.
type SQLite struct {
	Config database.Config
}

func NewSQLite(cfg database.Config) *SQLite {
	return &SQLite{Config: cfg}
}

func (d *SQLite) Name() string   { return "sqlite" }
func (d *SQLite) BulkKeys() bool { return true }

func (d *SQLite) Open(ctx context.Context) (Handle, error) {
	db, err := database.Open(d.Config)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	return &sqliteHandle{db: db}, nil
}

type sqliteHandle struct {
	db *sql.DB
}

func (h *sqliteHandle) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := h.db.QueryRowContext(ctx, `
		SELECT value FROM overlay WHERE key = ?
	`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select overlay value: %w", err)
	}
	return []byte(value), nil
}

func (h *sqliteHandle) Put(ctx context.Context, key string, value []byte) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO overlay (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, string(value))
	if err != nil {
		return fmt.Errorf("upsert overlay value: %w", err)
	}
	return nil
}

// Keys reads every key with one query and collects them before returning.
func (h *sqliteHandle) Keys(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT key FROM overlay ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list overlay keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0, 64)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan overlay key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overlay keys: %w", err)
	}
	return keys, nil
}

func (h *sqliteHandle) Cursor(ctx context.Context) (Cursor, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT key FROM overlay ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list overlay keys: %w", err)
	}
	return &rowsCursor{rows: rows}, nil
}

func (h *sqliteHandle) Close() error {
	return h.db.Close()
}

type rowsCursor struct {
	rows *sql.Rows
	key  string
	err  error
}

func (c *rowsCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	if err := c.rows.Scan(&c.key); err != nil {
		c.err = fmt.Errorf("scan overlay key: %w", err)
		return false
	}
	return true
}

func (c *rowsCursor) Key() string { return c.key }

func (c *rowsCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *rowsCursor) Close() error { return c.rows.Close() }
