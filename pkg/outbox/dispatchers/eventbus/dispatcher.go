// Package eventbus adapts the in-process event bus to the outbox
// Dispatcher interface.
package eventbus

import (
	"context"

	"github.com/dchoinie/church-membership-app-sub003/pkg/eventbus"
	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
)

// Dispatcher forwards relayed events to the bus. Subscribers receive
// (meta *outbox.Meta, topic string, payload json.RawMessage); a
// returned error or panic flows back to the relay as a retryable
// failure, and ErrNoSubscribers keeps an unconsumed topic visible.
type Dispatcher struct {
	bus eventbus.EventBusWithError
}

func New(bus eventbus.EventBusWithError) *Dispatcher {
	return &Dispatcher{bus: bus}
}

func (d *Dispatcher) Dispatch(_ context.Context, msg outbox.DispatchedMessage) error {
	return d.bus.PublishE(&msg.Meta, msg.Meta.Topic, msg.Payload)
}
