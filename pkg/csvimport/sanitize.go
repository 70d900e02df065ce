package csvimport

import (
	"strings"
	"unicode"
)

// Sanitize cleans a free-text cell before persistence: control runes are
// dropped, whitespace runs collapse to single spaces and the result is
// trimmed. Values come from hand-edited spreadsheets and regularly carry
// stray tabs and non-breaking spaces.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if unicode.IsControl(r) {
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
