package composables

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/dchoinie/church-membership-app-sub003/pkg/constants"
	"github.com/dchoinie/church-membership-app-sub003/pkg/shared"
)

// Params carries per-request client details that outlive the handler
// signature, like the resolved client IP for audit log lines.
type Params struct {
	IP        string
	UserAgent string
	Request   *http.Request
}

func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

// UseParams returns the request parameters placed in the context by the
// RequestParams middleware. The second return value is false outside an
// HTTP request.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// UseLogger returns the request-scoped logger. It panics when no logger
// middleware ran, because a missing logger is a wiring bug, not a runtime
// condition to handle.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(constants.LoggerKey)
	if logger == nil {
		panic("logger not found")
	}
	return logger.(*logrus.Entry)
}

// UseQuery decodes the request's query string into v using its form tags.
func UseQuery[T comparable](v T, r *http.Request) (T, error) {
	return v, shared.Decoder.Decode(v, r.URL.Query())
}
