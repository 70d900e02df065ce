package controllers

import (
	"net/http"
	"strings"

	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
	"github.com/dchoinie/church-membership-app-sub003/pkg/httpapi"
)

// NotFound is the router's fallback for unmatched paths. The middleware
// chain runs for it too, so the envelope can echo the request id the
// logger assigned.
func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "not found", fallbackMeta(w, r, nil))
	}
}

func MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed",
			fallbackMeta(w, r, map[string]string{"method": r.Method}))
	}
}

// fallbackMeta reads the request id from the configured header name,
// preferring the response copy the logging middleware wrote over
// whatever the client sent.
func fallbackMeta(w http.ResponseWriter, r *http.Request, extra map[string]string) map[string]string {
	meta := map[string]string{"path": r.URL.Path}
	for k, v := range extra {
		meta[k] = v
	}
	header := configuration.Use().RequestIDHeader
	if id := strings.TrimSpace(w.Header().Get(header)); id != "" {
		meta["request_id"] = id
	} else if id := strings.TrimSpace(r.Header.Get(header)); id != "" {
		meta["request_id"] = id
	}
	return meta
}
