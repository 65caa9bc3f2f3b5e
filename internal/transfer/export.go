package transfer

import (
	"schematics/internal/catalog"
	"schematics/pkg/csvcodec"
)

// ExportFilename is the download name of the owned export.
const ExportFilename = "owned_schematics.csv"

var exportHeaders = []string{"Title", "ImageURL", "PageURL", "Notes"}

// Export writes the owned catalog items, in catalog order, as fully quoted CSV.
func Export(items []catalog.Item, owned map[string]bool, notes map[string]string) string {
	rows := make([]csvcodec.Row, 0)
	for _, it := range items {
		key := it.Key()
		if !owned[key] {
			continue
		}
		rows = append(rows, csvcodec.Row{
			"Title":    it.Title,
			"ImageURL": it.ImageURL,
			"PageURL":  it.PageURL,
			"Notes":    notes[key],
		})
	}
	return csvcodec.Serialize(rows, exportHeaders)
}
