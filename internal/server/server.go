// Package server runs the tracker HTTP API and the TCP sync feed until its
// context is cancelled. Both cmd/api-server and `schematics serve` use it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"schematics/internal/auth"
	"schematics/internal/catalog"
	"schematics/internal/kvstore"
	synchub "schematics/internal/sync"
	"schematics/internal/tracker"
	"schematics/pkg/database"
	"schematics/pkg/utils"
)

// ErrStart marks failures before any listener was opened, such as a catalog
// that cannot be loaded.
var ErrStart = errors.New("server start failed")

type Config struct {
	Addr         string
	SyncAddr     string // empty disables the TCP feed
	Source       string
	DBPath       string
	NoteDebounce time.Duration
	Auth         utils.AuthConfig

	// Ready, when set, receives the bound HTTP address once listening.
	Ready func(addr string)
}

// Run blocks until ctx is done or a listener fails, then shuts down and
// flushes pending note writes.
func Run(ctx context.Context, cfg Config) error {
	gin.SetMode(gin.ReleaseMode)

	hub := synchub.NewHub()
	store := kvstore.New(kvstore.NewSQLite(database.Config{Path: cfg.DBPath}))

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	session, err := tracker.Start(startCtx, catalog.NewLoader(), store, tracker.Options{
		Source:       cfg.Source,
		NoteDebounce: cfg.NoteDebounce,
		Publisher:    hub,
	})
	cancel()
	if err != nil {
		slog.Error("Failed to load data. Ensure the catalog CSV exists.", "catalog", cfg.Source, "error", err)
		_ = store.Close()
		return fmt.Errorf("%w: %w", ErrStart, err)
	}
	hub.SetSnapshot(session.SyncSnapshot)

	tokens := auth.TokenService{
		Secret:   []byte(cfg.Auth.Secret),
		Issuer:   cfg.Auth.Issuer,
		Duration: cfg.Auth.Duration,
	}
	if !tokens.Enabled() {
		slog.Warn("SCHEMATICS_API_SECRET not set; write routes are open")
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = session.Close(ctx)
		return fmt.Errorf("%w: listen %s: %w", ErrStart, cfg.Addr, err)
	}
	httpSrv := &http.Server{
		Handler:           tracker.NewRouter(session, hub, tokens),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	var tcpSrv *synchub.Server
	if cfg.SyncAddr != "" {
		tcpSrv = synchub.NewServer(cfg.SyncAddr, hub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tcpSrv.Run(); err != nil {
				errCh <- err
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("HTTP API server listening", "addr", ln.Addr().String(), "db", cfg.DBPath)
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if cfg.Ready != nil {
		cfg.Ready(ln.Addr().String())
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case runErr = <-errCh:
		slog.Error("server error", "error", runErr)
	}

	slog.Info("shutting down servers")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	if tcpSrv != nil {
		if err := tcpSrv.Close(); err != nil {
			slog.Error("tcp shutdown error", "error", err)
		}
	}
	hub.CloseAll()
	if err := session.Close(shutdownCtx); err != nil {
		slog.Error("store close error", "error", err)
	}

	wg.Wait()
	slog.Info("servers stopped")
	return runErr
}
