package utils

import (
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	CatalogSource string
	Addr          string
	SyncAddr      string
	NoteDebounce  time.Duration
}

// LoadAppConfig applies SCHEMATICS_* environment overrides to def. Empty
// listen addresses in def fall back to :8080 and :7070.
func LoadAppConfig(def AppConfig) AppConfig {
	if def.Addr == "" {
		def.Addr = ":8080"
	}
	if def.SyncAddr == "" {
		def.SyncAddr = ":7070"
	}
	cfg := AppConfig{
		CatalogSource: envOr("SCHEMATICS_CATALOG", def.CatalogSource),
		Addr:          envOr("SCHEMATICS_ADDR", def.Addr),
		SyncAddr:      envOr("SCHEMATICS_SYNC_ADDR", def.SyncAddr),
		NoteDebounce:  def.NoteDebounce,
	}
	if ms, err := strconv.Atoi(os.Getenv("SCHEMATICS_NOTE_DEBOUNCE_MS")); err == nil && ms > 0 {
		cfg.NoteDebounce = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

type AuthConfig struct {
	// Secret empty means mutating routes are open.
	Secret   string
	Issuer   string
	Duration time.Duration
}

func LoadAuthConfig() AuthConfig {
	cfg := AuthConfig{
		Secret:   os.Getenv("SCHEMATICS_API_SECRET"),
		Issuer:   envOr("SCHEMATICS_TOKEN_ISSUER", "schematics"),
		Duration: 24 * time.Hour,
	}
	if h, err := strconv.Atoi(os.Getenv("SCHEMATICS_TOKEN_TTL_HOURS")); err == nil && h > 0 {
		cfg.Duration = time.Duration(h) * time.Hour
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
