package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
)

// RequestParams exposes the caller identity to lower layers through the
// context, so handlers can audit-log who uploaded a file without threading
// the request through every signature.
func RequestParams() mux.MiddlewareFunc {
	conf := configuration.Use()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			params := &composables.Params{
				IP:        clientIP(r, conf),
				UserAgent: r.UserAgent(),
				Request:   r,
			}
			next.ServeHTTP(w, r.WithContext(composables.WithParams(r.Context(), params)))
		})
	}
}
