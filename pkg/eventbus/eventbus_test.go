package eventbus

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/dchoinie/church-membership-app-sub003/pkg/logging"
)

type importCompleted struct {
	batch string
}

type importFailed struct {
	batch string
}

func captureLogger(level logrus.Level) (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(level)
	return log, buf
}

func TestMatchSignature(t *testing.T) {
	t.Parallel()

	if !MatchSignature(func(e *importCompleted) {}, []interface{}{&importCompleted{}}) {
		t.Error("same event type should match")
	}
	if MatchSignature(func(e *importCompleted) {}, []interface{}{&importFailed{}}) {
		t.Error("different event type should not match")
	}
	if MatchSignature(func(e *importCompleted) {}, []interface{}{}) {
		t.Error("arity mismatch should not match")
	}
	if MatchSignature(func(e *importCompleted) {}, []interface{}{&importCompleted{}, &importCompleted{}}) {
		t.Error("extra args should not match")
	}
	if !MatchSignature(func(ctx context.Context) {}, []interface{}{context.Background()}) {
		t.Error("interface parameter should accept an implementation")
	}
	if !MatchSignature(func(e *importCompleted) {}, []interface{}{nil}) {
		t.Error("nil should match a pointer parameter")
	}
	if MatchSignature(func(n int) {}, []interface{}{nil}) {
		t.Error("nil should not match a value parameter")
	}
	if MatchSignature(42, []interface{}{42}) {
		t.Error("non-function should never match")
	}
}

func TestPublishDeliversToMatchingHandler(t *testing.T) {
	t.Parallel()

	bus := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))
	var got string
	bus.Subscribe(func(e *importCompleted) {
		got = e.batch
	})
	bus.Subscribe(func(e *importFailed) {
		t.Error("wrong handler called")
	})

	bus.Publish(&importCompleted{batch: "b-17"})

	if got != "b-17" {
		t.Errorf("expected b-17, got %q", got)
	}
}

func TestPublishWarnsWhenNothingMatches(t *testing.T) {
	t.Parallel()

	log, buf := captureLogger(logrus.WarnLevel)
	bus := NewEventPublisher(log)
	bus.Subscribe(func(e *importCompleted) {
		t.Error("should not be called")
	})

	bus.Publish(&importFailed{batch: "b-1"})

	if out := buf.String(); !strings.Contains(out, "no matching subscribers") {
		t.Errorf("expected a no-subscriber warning, got %q", out)
	}
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	t.Parallel()

	t.Run("panic is logged and other handlers still run", func(t *testing.T) {
		log, buf := captureLogger(logrus.ErrorLevel)
		bus := NewEventPublisher(log)

		var before, after bool
		bus.Subscribe(func(e *importCompleted) { before = true })
		bus.Subscribe(func(e *importCompleted) { panic("boom") })
		bus.Subscribe(func(e *importCompleted) { after = true })

		bus.Publish(&importCompleted{batch: "b-2"})

		if !before || !after {
			t.Error("handlers around the panicking one should still run")
		}
		out := buf.String()
		if !strings.Contains(out, "panicked") || !strings.Contains(out, "boom") {
			t.Errorf("expected the panic in the log, got %q", out)
		}
	})

	t.Run("all handlers panicking counts as undelivered", func(t *testing.T) {
		log, buf := captureLogger(logrus.WarnLevel)
		bus := NewEventPublisher(log)
		bus.Subscribe(func(e *importCompleted) { panic("always") })

		bus.Publish(&importCompleted{batch: "b-3"})

		if out := buf.String(); !strings.Contains(out, "no matching subscribers") {
			t.Errorf("expected a no-subscriber warning, got %q", out)
		}
	})

	t.Run("one success suppresses the warning", func(t *testing.T) {
		log, buf := captureLogger(logrus.WarnLevel)
		bus := NewEventPublisher(log)
		bus.Subscribe(func(e *importCompleted) { panic("first") })
		bus.Subscribe(func(e *importCompleted) {})

		bus.Publish(&importCompleted{batch: "b-4"})

		if out := buf.String(); strings.Contains(out, "no matching subscribers") {
			t.Errorf("did not expect a no-subscriber warning, got %q", out)
		}
	})
}

func TestPublishE(t *testing.T) {
	t.Parallel()

	t.Run("no matching handler", func(t *testing.T) {
		bus := NewEventPublisher(nil).(EventBusWithError)
		err := bus.PublishE(&importCompleted{})
		if !errors.Is(err, ErrNoSubscribers) {
			t.Fatalf("expected ErrNoSubscribers, got %v", err)
		}
	})

	t.Run("handler errors are joined", func(t *testing.T) {
		bus := NewEventPublisher(nil).(EventBusWithError)
		err1 := errors.New("first")
		err2 := errors.New("second")
		bus.Subscribe(func(e *importCompleted) error { return err1 })
		bus.Subscribe(func(e *importCompleted) error { return err2 })

		err := bus.PublishE(&importCompleted{})
		if !errors.Is(err, err1) || !errors.Is(err, err2) {
			t.Fatalf("expected both errors joined, got %v", err)
		}
	})

	t.Run("void handler is a success", func(t *testing.T) {
		bus := NewEventPublisher(nil).(EventBusWithError)
		called := false
		bus.Subscribe(func(e *importCompleted) { called = true })

		if err := bus.PublishE(&importCompleted{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !called {
			t.Fatal("handler not called")
		}
	})

	t.Run("panic surfaces as error, rest still run", func(t *testing.T) {
		bus := NewEventPublisher(nil).(EventBusWithError)
		called := false
		bus.Subscribe(func(e *importCompleted) error { panic("boom") })
		bus.Subscribe(func(e *importCompleted) error { called = true; return nil })

		err := bus.PublishE(&importCompleted{})
		if err == nil || !strings.Contains(err.Error(), "panicked") {
			t.Fatalf("expected a panic error, got %v", err)
		}
		if !called {
			t.Fatal("non-panicking handler should still run")
		}
	})

	t.Run("non-error return is rejected", func(t *testing.T) {
		bus := NewEventPublisher(nil).(EventBusWithError)
		bus.Subscribe(func(e *importCompleted) int { return 1 })

		if err := bus.PublishE(&importCompleted{}); !errors.Is(err, ErrInvalidHandlerReturn) {
			t.Fatalf("expected ErrInvalidHandlerReturn, got %v", err)
		}
	})

	t.Run("multi-value return is rejected", func(t *testing.T) {
		bus := NewEventPublisher(nil).(EventBusWithError)
		bus.Subscribe(func(e *importCompleted) (int, error) { return 0, nil })

		if err := bus.PublishE(&importCompleted{}); !errors.Is(err, ErrInvalidHandlerReturn) {
			t.Fatalf("expected ErrInvalidHandlerReturn, got %v", err)
		}
	})
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	bus := NewEventPublisher(nil)
	calls := 0
	h := func(e *importCompleted) { calls++ }

	bus.Subscribe(h)
	if bus.SubscribersCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", bus.SubscribersCount())
	}

	bus.Publish(&importCompleted{})
	bus.Unsubscribe(h)
	bus.Publish(&importCompleted{})

	if calls != 1 {
		t.Errorf("expected exactly one delivery, got %d", calls)
	}
	if bus.SubscribersCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscribersCount())
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	bus := NewEventPublisher(nil)
	bus.Subscribe(func(e *importCompleted) {})
	bus.Subscribe(func(e *importFailed) {})
	bus.Clear()

	if bus.SubscribersCount() != 0 {
		t.Errorf("expected 0 subscribers after Clear, got %d", bus.SubscribersCount())
	}
}
