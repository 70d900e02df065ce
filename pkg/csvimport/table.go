package csvimport

import (
	"bytes"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one data row with its 1-based physical line number. The header
// occupies line 1, so the first data row reports line 2.
type Row struct {
	Line   int
	Fields []string
}

// Field returns the trimmed field at position i, or "" when the row is
// shorter than the header.
func (r Row) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return strings.TrimSpace(r.Fields[i])
}

// RawField returns the field verbatim, without trimming.
func (r Row) RawField(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}

// Table is a fully tokenized upload: resolved header plus data rows in
// file order.
type Table struct {
	Header *Header
	Rows   []Row
}

// Parse tokenizes raw CSV bytes. It strips a leading UTF-8 BOM, accepts
// both \n and \r\n line endings, and drops trailing blank lines while
// keeping interior ones (those surface later as row validation failures).
// Fewer than a header row plus one data row is a structural error.
func Parse(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	lines := strings.Split(string(data), "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	if len(lines) < 2 {
		return nil, ErrNoData
	}

	t := &Table{
		Header: NewHeader(SplitFields(lines[0])),
		Rows:   make([]Row, 0, len(lines)-1),
	}
	for i := 1; i < len(lines); i++ {
		t.Rows = append(t.Rows, Row{Line: i + 1, Fields: SplitFields(lines[i])})
	}
	return t, nil
}

// FromRecords builds a Table from pre-split records (the XLSX path).
// Records are numbered as if they were physical lines of a CSV file.
func FromRecords(records [][]string) (*Table, error) {
	for len(records) > 0 && blankRecord(records[len(records)-1]) {
		records = records[:len(records)-1]
	}
	if len(records) < 2 {
		return nil, ErrNoData
	}

	t := &Table{
		Header: NewHeader(records[0]),
		Rows:   make([]Row, 0, len(records)-1),
	}
	for i := 1; i < len(records); i++ {
		t.Rows = append(t.Rows, Row{Line: i + 1, Fields: records[i]})
	}
	return t, nil
}

func blankRecord(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
