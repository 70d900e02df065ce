package outbox

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// RelayOptions tunes a Relay. The zero value is usable: every field
// falls back to a sane default in withDefaults.
type RelayOptions struct {
	// PollInterval is how often the relay looks for claimable events.
	PollInterval time.Duration
	// BatchSize caps the rows claimed per tick.
	BatchSize int
	// LockTTL is how long a claim is honored before another relay may
	// steal the row. Must exceed the worst-case dispatch time.
	LockTTL time.Duration
	// MaxAttempts is the delivery budget before an event is parked.
	MaxAttempts int
	// SingleActive elects one polling relay per table via an advisory
	// lock instead of letting every replica poll.
	SingleActive bool
	// MaxBackoff caps the exponential retry delay.
	MaxBackoff time.Duration
	// JitterMax bounds the random spread added to each retry delay.
	JitterMax time.Duration
	// LastErrorMaxLen truncates dispatch errors before they are stored.
	LastErrorMaxLen int
	// DispatchTimeout bounds a single Dispatch call. Zero disables it.
	DispatchTimeout time.Duration

	Logger *logrus.Entry
	Rand   *rand.Rand

	// ObserveQueueDepthEvery spaces out the pending/locked count
	// queries, which scan the whole table.
	ObserveQueueDepthEvery time.Duration
}

func (o RelayOptions) withDefaults() RelayOptions {
	if o.PollInterval == 0 {
		o.PollInterval = time.Second
	}
	if o.BatchSize == 0 {
		o.BatchSize = 100
	}
	if o.LockTTL == 0 {
		o.LockTTL = 60 * time.Second
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 25
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = 60 * time.Second
	}
	if o.JitterMax == 0 {
		o.JitterMax = 200 * time.Millisecond
	}
	if o.LastErrorMaxLen == 0 {
		o.LastErrorMaxLen = 2048
	}
	if o.DispatchTimeout == 0 {
		o.DispatchTimeout = 30 * time.Second
	}
	if o.ObserveQueueDepthEvery == 0 {
		o.ObserveQueueDepthEvery = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = nopLogger()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}
	return o
}

// CleanerOptions tunes a Cleaner. Retention governs published rows;
// DeadRetention, when positive, additionally prunes parked rows.
type CleanerOptions struct {
	Enabled       bool
	Interval      time.Duration
	Retention     time.Duration
	DeadRetention time.Duration

	// DeadAttemptsThreshold identifies parked rows. It must match the
	// MaxAttempts of the relay serving the same table.
	DeadAttemptsThreshold int

	Logger *logrus.Entry
}

func (o CleanerOptions) withDefaults() CleanerOptions {
	if o.Interval == 0 {
		o.Interval = time.Minute
	}
	if o.Retention == 0 {
		o.Retention = 7 * 24 * time.Hour
	}
	if o.Logger == nil {
		o.Logger = nopLogger()
	}
	return o
}
