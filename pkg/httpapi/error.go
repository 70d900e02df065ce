// Package httpapi carries the JSON response conventions shared by every
// API controller: the error envelope, the validation envelope, and the
// import upload plumbing.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// ErrorEnvelope is the wire shape of every non-2xx API response. Code is
// the machine-readable discriminator clients switch on, Message is for
// humans, and Meta carries optional context such as the request id.
type ErrorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// ValidationEnvelope pairs the VALIDATION code with per-field messages
// for a rejected create or update body.
type ValidationEnvelope struct {
	Code   string            `json:"code"`
	Errors map[string]string `json:"errors"`
}

// WriteJSON marshals the payload before touching the response, so a
// failed marshal becomes a clean 500 instead of a truncated body under
// an already-committed status.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	if payload == nil {
		w.WriteHeader(status)
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return err
	}
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, ErrorEnvelope{Code: code, Message: message, Meta: meta})
}

func WriteValidationErrors(w http.ResponseWriter, fields map[string]string) error {
	return WriteJSON(w, http.StatusUnprocessableEntity, ValidationEnvelope{Code: "VALIDATION", Errors: fields})
}
