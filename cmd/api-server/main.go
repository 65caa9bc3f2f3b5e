package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"schematics/internal/catalog"
	"schematics/internal/debounce"
	"schematics/internal/server"
	"schematics/pkg/database"
	"schematics/pkg/utils"
)

func main() {
	appCfg := utils.LoadAppConfig(utils.AppConfig{
		CatalogSource: catalog.DefaultSource,
		NoteDebounce:  debounce.DefaultInterval,
	})
	dbCfg := database.DefaultConfig()

	var (
		addr     = flag.String("addr", appCfg.Addr, "HTTP listen address")
		syncAddr = flag.String("sync-addr", appCfg.SyncAddr, "TCP sync listen address (empty disables)")
		source   = flag.String("catalog", appCfg.CatalogSource, "catalog CSV path or URL")
		dbPath   = flag.String("db", dbCfg.Path, "overlay database path")
		interval = flag.Duration("note-debounce", appCfg.NoteDebounce, "note write debounce interval")
		logLevel = flag.String("log-level", "info", "debug, info, warn or error")
	)
	flag.Parse()

	if _, err := utils.SetupLogger(*logLevel); err != nil {
		slog.Error("bad flags", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := server.Run(ctx, server.Config{
		Addr:         *addr,
		SyncAddr:     *syncAddr,
		Source:       *source,
		DBPath:       *dbPath,
		NoteDebounce: *interval,
		Auth:         utils.LoadAuthConfig(),
	})
	if err != nil {
		stop()
		os.Exit(1)
	}
}
