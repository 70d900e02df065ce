package shared

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// DateOnly is the wire format for date-only fields (date of birth,
// giving dates, membership dates).
const DateOnly = "2006-01-02"

// ParseUUID extracts and parses a uuid path variable.
func ParseUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[name])
}
