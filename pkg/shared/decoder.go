package shared

import (
	"strings"
	"time"

	"github.com/go-playground/form"
	"github.com/google/uuid"
)

// Decoder is the shared query-string decoder behind composables.UseQuery.
// UUID and date fields get custom parsers because the form package does
// not consult encoding.TextUnmarshaler; blank values decode to the zero
// value so an empty ?member_id= behaves like an absent parameter.
var Decoder = form.NewDecoder()

func init() {
	Decoder.SetTagName("form")
	Decoder.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		raw := strings.TrimSpace(vals[0])
		if raw == "" {
			return uuid.Nil, nil
		}
		return uuid.Parse(raw)
	}, uuid.UUID{})
	Decoder.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		raw := strings.TrimSpace(vals[0])
		if raw == "" {
			return time.Time{}, nil
		}
		return time.Parse(DateOnly, raw)
	}, time.Time{})
}
