package middleware

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
	"github.com/dchoinie/church-membership-app-sub003/pkg/constants"
	"github.com/dchoinie/church-membership-app-sub003/pkg/httpapi"
)

var tracer = otel.Tracer("church-admin-middleware")

type LoggerOptions struct {
	// LogRequestBody and LogResponseBody capture JSON payloads at debug
	// level. Multipart uploads are always skipped, so CSV and XLSX import
	// files never land in the log stream.
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodyLength   int

	// Repanic rethrows after the recovery handler has logged and
	// responded, for setups with an outer crash reporter.
	Repanic bool
}

func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		LogRequestBody:  true,
		LogResponseBody: true,
		MaxBodyLength:   512,
	}
}

// statusWriter records the status code and a copy of the body. An
// unwritten header counts as written once body bytes go out, which is
// what the panic handler checks before attempting its own response.
type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
	buf    bytes.Buffer
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.status = code
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}

// clientIP prefers the configured proxy header and falls back to the
// peer address without its port.
func clientIP(r *http.Request, conf *configuration.Configuration) string {
	if ip := r.Header.Get(conf.RealIPHeader); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func requestID(r *http.Request, conf *configuration.Configuration) string {
	if id := r.Header.Get(conf.RequestIDHeader); id != "" {
		return id
	}
	return uuid.New().String()
}

// TracedMiddleware opens a span around the rest of the chain segment, so
// slow middleware shows up in traces under its own name.
func TracedMiddleware(name string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(
				r.Context(),
				"middleware."+name,
				trace.WithAttributes(attribute.String("middleware.name", name)),
			)
			defer span.End()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithLogger is the outermost middleware. It joins the caller's trace,
// opens the root span, assigns the request id, and places the
// request-scoped logger into the context composables.UseLogger reads.
// Panics anywhere downstream are logged here and answered with the
// standard error envelope.
func WithLogger(logger *logrus.Logger, opts LoggerOptions) mux.MiddlewareFunc {
	conf := configuration.Use()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := requestID(r, conf)

			entry := logger.WithFields(logrus.Fields{
				"request_id": reqID,
				"method":     r.Method,
				"path":       r.URL.Path,
			})

			propagator := propagation.TraceContext{}
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(
				ctx,
				"http.request",
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.route", r.URL.Path),
					attribute.String("http.request_id", reqID),
					attribute.String("net.host.name", r.Host),
					attribute.String("net.peer.ip", clientIP(r, conf)),
				),
			)
			defer span.End()

			if sc := span.SpanContext(); sc.HasTraceID() {
				w.Header().Set("X-Trace-Id", sc.TraceID().String())
				w.Header().Set("X-Span-Id", sc.SpanID().String())
				entry = entry.WithField("trace_id", sc.TraceID().String())
			}
			w.Header().Set(conf.RequestIDHeader, reqID)
			propagator.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			ctx = context.WithValue(ctx, constants.LoggerKey, entry)

			entry.WithFields(logrus.Fields{
				"host":       r.Host,
				"client_ip":  clientIP(r, conf),
				"user_agent": r.UserAgent(),
			}).Debug("request started")

			if opts.LogRequestBody {
				if err := captureRequestBody(entry, r, opts.MaxBodyLength); err != nil {
					entry.WithError(err).Error("failed to read request body")
					_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
					return
				}
			}

			ww := &statusWriter{ResponseWriter: w}

			defer func() {
				if recovered := recover(); recovered != nil {
					entry.WithFields(logrus.Fields{
						"panic":     recovered,
						"stack":     string(debug.Stack()),
						"client_ip": clientIP(r, conf),
						"duration":  time.Since(start).String(),
					}).Error("panic recovered in request handler")

					if !ww.wrote {
						_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", map[string]string{
							"request_id": reqID,
						})
					}
					if opts.Repanic {
						panic(recovered)
					}
				}
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			duration := time.Since(start)
			entry.WithFields(logrus.Fields{
				"status":      status,
				"duration_ms": duration.Milliseconds(),
				"bytes":       ww.buf.Len(),
			}).Info("request completed")

			span.SetAttributes(
				attribute.Int("http.status_code", status),
				attribute.Int64("http.request_duration_ms", duration.Milliseconds()),
			)

			if opts.LogResponseBody && isJSONContent(ww.Header().Get("Content-Type")) {
				entry.WithField("response_body", clipBody(ww.buf.String(), opts.MaxBodyLength)).Debug("response body")
			}
		})
	}
}

// captureRequestBody logs the JSON payload of a mutating request and
// restores the body for the handler. It only observes: malformed JSON is
// logged raw and left for the handler to reject.
func captureRequestBody(entry *logrus.Entry, r *http.Request, maxLen int) error {
	if r.Body == nil || !mutating(r.Method) || !isJSONContent(r.Header.Get("Content-Type")) {
		return nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		entry.WithField("request_body", clipBody(string(raw), maxLen)).Debug("request body")
		return nil
	}
	entry.WithField("request_body", parsed).Debug("request body")
	return nil
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func isJSONContent(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}

func clipBody(body string, maxLen int) string {
	if maxLen <= 0 || len(body) <= maxLen {
		return body
	}
	return body[:maxLen] + "...(truncated)"
}
