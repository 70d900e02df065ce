// Package csvimport provides the row-oriented table reader used by the
// bulk import endpoints and the church-data CLI. It is deliberately more
// lenient than encoding/csv: each physical line is tokenized on its own,
// quotes never span lines, and unbalanced quotes consume the rest of the
// line instead of failing the file.
package csvimport

import (
	"strings"
)

// SplitFields tokenizes a single physical line. A comma outside quotes
// terminates a field, a quote toggles quote mode, and a doubled quote
// inside quotes emits a literal quote. The final field is always flushed,
// so an empty line yields one empty field.
func SplitFields(line string) []string {
	fields := make([]string, 0, 8)
	var cur strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	fields = append(fields, cur.String())
	return fields
}
