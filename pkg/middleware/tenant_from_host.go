package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dchoinie/church-membership-app-sub003/modules/core/services"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/httpapi"
)

// RequireTenantFromHost maps the request's Host header to a tenant and
// places the tenant id in the context every repository reads. Unknown
// hosts get a JSON 404. skipPrefixes lists paths (health probes,
// metrics) served without tenant resolution.
func RequireTenantFromHost(app application.Application, skipPrefixes ...string) mux.MiddlewareFunc {
	tenants := app.Service(services.TenantService{}).(*services.TenantService)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipped(r.URL.Path, skipPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			host := canonicalHost(r.Host)
			if host == "" {
				_ = httpapi.WriteError(w, http.StatusNotFound, "TENANT_NOT_FOUND", "no tenant for host", nil)
				return
			}

			t, err := tenants.GetByDomain(r.Context(), host)
			if err != nil {
				composables.UseLogger(r.Context()).
					WithField("host", host).
					WithError(err).
					Warn("tenant not found for host")
				_ = httpapi.WriteError(w, http.StatusNotFound, "TENANT_NOT_FOUND", "no tenant for host", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(composables.WithTenantID(r.Context(), t.ID())))
		})
	}
}

func skipped(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// canonicalHost lowercases and strips the port so stored tenant domains
// match regardless of how the client dialed.
func canonicalHost(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if host, _, err := net.SplitHostPort(raw); err == nil {
		return host
	}
	return raw
}
