package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schematics/internal/catalog"
)

func TestRunServesUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(source, []byte("Title\nWidget\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Addr:   "127.0.0.1:0",
			Source: source,
			DBPath: filepath.Join(dir, "overlay.db"),
			Ready:  func(addr string) { ready <- addr },
		})
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunFailsOnMissingCatalog(t *testing.T) {
	dir := t.TempDir()
	err := Run(context.Background(), Config{
		Addr:   "127.0.0.1:0",
		Source: filepath.Join(dir, "missing.csv"),
		DBPath: filepath.Join(dir, "overlay.db"),
	})
	assert.ErrorIs(t, err, ErrStart)
	assert.ErrorIs(t, err, catalog.ErrCatalogFetch)
}
