// Package eventbus provides the in-process pub/sub bus the application
// and the outbox relay publish through. Handlers are plain functions;
// an event matches a handler when the published arguments are
// assignable to the handler's parameters.
package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dchoinie/church-membership-app-sub003/pkg/serrors"
)

type EventBus interface {
	Publish(args ...interface{})
	Subscribe(handler interface{})
	Unsubscribe(handler interface{})
	Clear()
	SubscribersCount() int
}

// EventBusWithError extends EventBus with a publish that reports
// handler failures to the caller. The outbox relay uses it so a failed
// handler reschedules the event instead of silently dropping it.
type EventBusWithError interface {
	EventBus
	PublishE(args ...any) error
}

var (
	ErrNoSubscribers        = serrors.NewError("EVENTBUS_NO_SUBSCRIBERS", "no matching subscribers", "")
	ErrInvalidHandlerReturn = serrors.NewError("EVENTBUS_INVALID_HANDLER_RETURN", "invalid handler return signature", "")
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &bus{log: log}
}

type handler struct {
	fn reflect.Value
}

type bus struct {
	log *logrus.Logger

	mu       sync.RWMutex
	handlers []handler
}

// MatchSignature reports whether fn would receive an event published
// with args: arity must agree and every argument must be assignable to
// (or implement) the corresponding parameter. A nil argument matches
// any pointer or interface parameter.
func MatchSignature(fn interface{}, args []interface{}) bool {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		return false
	}
	return accepts(t, args)
}

func accepts(t reflect.Type, args []interface{}) bool {
	if t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		param := t.In(i)
		if arg == nil {
			if param.Kind() != reflect.Interface && param.Kind() != reflect.Ptr {
				return false
			}
			continue
		}
		at := reflect.TypeOf(arg)
		if param.Kind() == reflect.Interface {
			if !at.Implements(param) {
				return false
			}
			continue
		}
		if !at.AssignableTo(param) {
			return false
		}
	}
	return true
}

// Publish delivers the event to every matching handler. Panics are
// recovered per handler so one bad subscriber cannot starve the rest,
// and a panicking handler does not count as a delivery.
func (b *bus) Publish(args ...interface{}) {
	in := valuesOf(args)
	delivered := 0
	for _, h := range b.matching(args) {
		if _, err := h.call(in); err != nil {
			if b.log != nil {
				b.log.Errorf("%v (args %v)", err, args)
			}
			continue
		}
		delivered++
	}
	if delivered == 0 && b.log != nil {
		b.log.Warnf("eventbus: no matching subscribers for event args %v", args)
	}
}

// PublishE delivers the event and reports failures. Handlers may
// return nothing or a single error; any other signature is an
// ErrInvalidHandlerReturn. When no handler matches at all the caller
// gets ErrNoSubscribers, so a misconfigured topic is visible instead
// of a silent drop.
func (b *bus) PublishE(args ...any) error {
	matched := b.matching(args)
	if len(matched) == 0 {
		return ErrNoSubscribers
	}

	in := valuesOf(args)
	var errs []error
	for _, h := range matched {
		out, err := h.call(in)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := h.returnedError(out); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *bus) Subscribe(fn interface{}) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic("eventbus: Subscribe expects a function")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler{fn: v})
}

func (b *bus) Unsubscribe(fn interface{}) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.handlers {
		if h.fn.Pointer() == v.Pointer() {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return
		}
	}
}

func (b *bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = nil
}

func (b *bus) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// matching snapshots the handlers that accept args, so delivery runs
// outside the lock and handlers may Subscribe or Unsubscribe freely.
func (b *bus) matching(args []interface{}) []handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []handler
	for _, h := range b.handlers {
		if accepts(h.fn.Type(), args) {
			out = append(out, h)
		}
	}
	return out
}

// call invokes the handler with panics converted to errors. Invalid
// values (published nil arguments) become the zero value of the
// parameter they matched.
func (h handler) call(in []reflect.Value) (out []reflect.Value, err error) {
	t := h.fn.Type()
	filled := make([]reflect.Value, len(in))
	for i, v := range in {
		if !v.IsValid() {
			filled[i] = reflect.Zero(t.In(i))
			continue
		}
		filled[i] = v
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %s panicked: %v", t, r)
		}
	}()
	return h.fn.Call(filled), nil
}

func (h handler) returnedError(out []reflect.Value) error {
	switch {
	case len(out) == 0:
		return nil
	case len(out) > 1:
		return fmt.Errorf("%w: handler %s returned %d values", ErrInvalidHandlerReturn, h.fn.Type(), len(out))
	}
	ret := out[0]
	if ret.Type() != errType {
		return fmt.Errorf("%w: handler %s returns %s", ErrInvalidHandlerReturn, h.fn.Type(), ret.Type())
	}
	if ret.IsNil() {
		return nil
	}
	return ret.Interface().(error)
}

func valuesOf(args []any) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = reflect.ValueOf(a)
	}
	return in
}
