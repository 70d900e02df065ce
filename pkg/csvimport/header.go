package csvimport

import (
	"strings"
	"unicode"
)

// Column is one header cell with its position.
type Column struct {
	Index      int
	Name       string
	Normalized string
}

// Header resolves logical field names against the header row. Every cell
// is registered under its normalized form and its no-space variant, so
// "Date Of Birth", "date_of_birth" and "dateofbirth" all address the same
// column. On duplicate names the first occurrence wins.
type Header struct {
	index   map[string]int
	columns []Column
}

func NewHeader(cells []string) *Header {
	h := &Header{
		index:   make(map[string]int, len(cells)*2),
		columns: make([]Column, 0, len(cells)),
	}
	for i, cell := range cells {
		norm := Normalize(cell)
		h.columns = append(h.columns, Column{Index: i, Name: cell, Normalized: norm})
		if norm == "" {
			continue
		}
		if _, ok := h.index[norm]; !ok {
			h.index[norm] = i
		}
		compact := strings.ReplaceAll(norm, " ", "")
		if _, ok := h.index[compact]; !ok {
			h.index[compact] = i
		}
	}
	return h
}

// Normalize trims a cell, lowercases it and collapses runs of whitespace
// and underscores into single spaces.
func Normalize(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) || r == '_' {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// Index returns the column position of the first alias present in the
// header.
func (h *Header) Index(aliases ...string) (int, bool) {
	for _, alias := range aliases {
		norm := Normalize(alias)
		if i, ok := h.index[norm]; ok {
			return i, true
		}
		if i, ok := h.index[strings.ReplaceAll(norm, " ", "")]; ok {
			return i, true
		}
	}
	return -1, false
}

func (h *Header) Has(aliases ...string) bool {
	_, ok := h.Index(aliases...)
	return ok
}

// Value returns the trimmed cell of the first matching alias column, or
// "" when no alias resolves or the row is short.
func (h *Header) Value(row Row, aliases ...string) string {
	i, ok := h.Index(aliases...)
	if !ok {
		return ""
	}
	return row.Field(i)
}

// Columns lists all header cells in order, including unmatched ones.
// Dynamic column binding (tenant giving categories) iterates these.
func (h *Header) Columns() []Column {
	return h.columns
}

func (h *Header) Len() int {
	return len(h.columns)
}
