package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"schematics/pkg/csvcodec"
)

var (
	// ErrCatalogFetch is returned when the catalog cannot be read. It is
	// fatal to startup.
	ErrCatalogFetch = errors.New("catalog fetch failed")
	ErrNoTitle      = errors.New("catalog has no Title column")
)

// DefaultSource is the catalog path used when none is configured.
const DefaultSource = "dune_unique_schematics.csv"

// Loader reads the catalog once from a local path or an http(s) URL.
type Loader struct {
	Client *http.Client
}

func NewLoader() *Loader {
	return &Loader{Client: &http.Client{Timeout: 12 * time.Second}}
}

func (l *Loader) Load(ctx context.Context, source string) ([]Item, error) {
	text, err := l.fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCatalogFetch, source, err)
	}

	if err := Validate(text); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCatalogFetch, source, err)
	}
	return ItemsFromRows(csvcodec.Parse(text)), nil
}

// Validate reports ErrNoTitle when text has no Title header, the one thing
// Load rejects in a readable catalog.
func Validate(text string) error {
	if !slices.Contains(csvcodec.Headers(text), ColTitle) {
		return ErrNoTitle
	}
	return nil
}

func (l *Loader) fetch(ctx context.Context, source string) (string, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		b, err := os.ReadFile(source)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := l.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
