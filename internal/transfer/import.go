// Package transfer converts between CSV files and the owned overlay.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"schematics/internal/catalog"
	"schematics/pkg/csvcodec"
)

var (
	ErrNoRows       = errors.New("no rows found in CSV")
	ErrMissingTitle = errors.New("CSV must include a Title column")
)

// Overlay is the part of the catalog model an import writes to.
type Overlay interface {
	SetOwned(ctx context.Context, key string, owned bool) error
	SetNote(key, note string)
	PersistNote(ctx context.Context, key, note string) error
}

type Result struct {
	Count    int  `json:"count"`
	HasNotes bool `json:"has_notes"`
}

// Message is the user-facing summary of an import.
func (r Result) Message() string {
	msg := fmt.Sprintf("Imported %d owned items", r.Count)
	if r.HasNotes {
		msg += " (with notes where present)"
	}
	return msg + "."
}

// Import marks every titled row of text as owned, copying non-empty notes
// when the file has a Notes column. Headers are validated before the first
// write; rows are written one at a time and Count only includes rows whose
// ownership write completed. On a store error the partial result is returned
// with the error.
func Import(ctx context.Context, overlay Overlay, text string) (Result, error) {
	rows := csvcodec.Parse(text)
	if len(rows) == 0 {
		return Result{}, ErrNoRows
	}

	titleCol, notesCol := "", ""
	for _, h := range csvcodec.Headers(text) {
		switch strings.ToLower(h) {
		case "title":
			if titleCol == "" {
				titleCol = h
			}
		case "notes":
			if notesCol == "" {
				notesCol = h
			}
		}
	}
	if titleCol == "" {
		return Result{}, ErrMissingTitle
	}

	res := Result{HasNotes: notesCol != ""}
	for _, row := range rows {
		title := strings.TrimSpace(row[titleCol])
		if title == "" {
			continue
		}
		key := catalog.Normalize(title)

		if err := overlay.SetOwned(ctx, key, true); err != nil {
			return res, fmt.Errorf("import %q: %w", title, err)
		}
		res.Count++

		if notesCol == "" {
			continue
		}
		if note := strings.TrimSpace(row[notesCol]); note != "" {
			if err := overlay.PersistNote(ctx, key, note); err != nil {
				return res, fmt.Errorf("import note %q: %w", title, err)
			}
			overlay.SetNote(key, note)
		}
	}
	return res, nil
}
