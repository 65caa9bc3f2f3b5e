// Package csvcodec is a tolerant CSV reader and an always-quoting writer.
//
// Parsing never fails: unbalanced quotes and a missing trailing newline are
// taken literally rather than reported.
package csvcodec

import "strings"

// Row maps a header cell to the trimmed value of that column.
type Row map[string]string

// ParseRecords scans text into raw records without any header handling.
// Lines that produce no field at all (blank lines) are skipped.
func ParseRecords(text string) [][]string {
	var (
		records  [][]string
		record   []string
		field    strings.Builder
		inQuotes bool
	)

	flush := func() {
		if field.Len() > 0 || len(record) > 0 {
			record = append(record, field.String())
			records = append(records, record)
			record = nil
			field.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				field.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case ',':
			record = append(record, field.String())
			field.Reset()
		case '\n', '\r':
			flush()
			if c == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
		default:
			field.WriteByte(c)
		}
	}
	flush()

	return records
}

// Headers returns the trimmed header row of text, or nil when text has no rows.
func Headers(text string) []string {
	records := ParseRecords(text)
	if len(records) == 0 {
		return nil
	}
	return trimAll(records[0])
}

// Parse treats the first record as the header and maps every following
// record onto it. Short records yield "" for the missing columns; cells
// beyond the header are dropped.
func Parse(text string) []Row {
	records := ParseRecords(text)
	if len(records) == 0 {
		return nil
	}

	headers := trimAll(records[0])
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(headers))
		for idx, h := range headers {
			v := ""
			if idx < len(rec) {
				v = strings.TrimSpace(rec[idx])
			}
			row[h] = v
		}
		rows = append(rows, row)
	}
	return rows
}

// Serialize writes a header line followed by one line per row. Every field is
// quoted with internal quotes doubled; lines are joined with "\n".
func Serialize(rows []Row, headers []string) string {
	var b strings.Builder
	writeLine(&b, headers)
	for _, row := range rows {
		b.WriteByte('\n')
		vals := make([]string, len(headers))
		for idx, h := range headers {
			vals[idx] = row[h]
		}
		writeLine(&b, vals)
	}
	return b.String()
}

func writeLine(b *strings.Builder, vals []string) {
	for idx, v := range vals {
		if idx > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(v, `"`, `""`))
		b.WriteByte('"')
	}
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for idx, s := range in {
		out[idx] = strings.TrimSpace(s)
	}
	return out
}
