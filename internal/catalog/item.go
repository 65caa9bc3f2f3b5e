package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"schematics/pkg/csvcodec"
)

// Catalog column names.
const (
	ColTitle    = "Title"
	ColImageURL = "ImageURL"
	ColPageURL  = "PageURL"
)

// Item is one catalog row. Columns other than the three known ones are kept
// in Extra untouched.
type Item struct {
	Title    string            `json:"title"`
	ImageURL string            `json:"image_url,omitempty"`
	PageURL  string            `json:"page_url,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Key is the normalized title used to join the item to its overlay records.
func (it Item) Key() string { return Normalize(it.Title) }

// Normalize lowercases and trims a title. Titles that differ only in case or
// surrounding whitespace share one key.
func Normalize(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func itemFromRow(row csvcodec.Row) Item {
	it := Item{
		Title:    row[ColTitle],
		ImageURL: row[ColImageURL],
		PageURL:  row[ColPageURL],
	}
	for col, v := range row {
		switch col {
		case ColTitle, ColImageURL, ColPageURL:
			continue
		}
		if it.Extra == nil {
			it.Extra = make(map[string]string)
		}
		it.Extra[col] = v
	}
	return it
}

// ItemsFromRows converts parsed CSV rows and orders them by title.
func ItemsFromRows(rows []csvcodec.Row) []Item {
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemFromRow(row))
	}

	col := collate.New(language.Und)
	sort.SliceStable(items, func(i, j int) bool {
		return col.CompareString(items[i].Title, items[j].Title) < 0
	})
	return items
}
