// Package outbox implements the transactional outbox the import
// pipelines publish through. An import batch enqueues its completion
// event in the same transaction as the member or giving rows; the
// relay delivers it to the in-process event bus after commit, so an
// event is never observable for a batch that rolled back.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/dchoinie/church-membership-app-sub003/pkg/serrors"
)

// Message is what a producer enqueues. EventID is the idempotency key:
// enqueueing the same EventID twice stores one row.
type Message struct {
	TenantID uuid.UUID
	Topic    string
	EventID  uuid.UUID
	Payload  json.RawMessage
}

// Meta travels with every delivered event and is enough to dedupe
// (EventID), order (Sequence) and debug (Attempts) on the consumer side.
type Meta struct {
	Table    pgx.Identifier
	TenantID uuid.UUID
	Topic    string
	EventID  uuid.UUID
	Sequence int64
	Attempts int
}

// DispatchedMessage is the unit the relay hands to a Dispatcher.
type DispatchedMessage struct {
	Meta    Meta
	Payload json.RawMessage
}

// Dispatcher delivers one claimed event. A nil return marks the row
// published; an error schedules a retry until the attempt budget runs out.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg DispatchedMessage) error
}

var ErrInvalidConfig = serrors.NewError("OUTBOX_INVALID_CONFIG", "invalid outbox configuration", "")

func invalidConfig(msg string, args ...any) error {
	return fmt.Errorf("%w: "+msg, append([]any{ErrInvalidConfig}, args...)...)
}

// TableLabel renders an identifier the way it appears in metrics and
// log fields ("public.import_outbox").
func TableLabel(table pgx.Identifier) string {
	return strings.Join(table, ".")
}

func nopLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// clip shortens s to at most maxBytes without ever splitting a UTF-8
// rune; last_error columns stay readable.
func clip(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	b := []byte(s[:maxBytes])
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return string(b)
}

func clipError(err error, maxBytes int) string {
	if err == nil {
		return ""
	}
	return clip(err.Error(), maxBytes)
}
