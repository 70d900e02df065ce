package outbox

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Relay polls one outbox table and delivers pending events to a
// Dispatcher. With SingleActive set, replicas race for a Postgres
// advisory lock and only the winner polls; the rest keep retrying the
// lock so a crashed leader is replaced within one poll interval.
type Relay struct {
	pool       *pgxpool.Pool
	table      pgx.Identifier
	dispatcher Dispatcher
	opts       RelayOptions

	leaseKey int64
	label    string
	m        *relayMetrics
}

func NewRelay(pool *pgxpool.Pool, table pgx.Identifier, dispatcher Dispatcher, opts RelayOptions) (*Relay, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	if dispatcher == nil {
		return nil, invalidConfig("dispatcher is required")
	}

	label := TableLabel(table)
	return &Relay{
		pool:       pool,
		table:      table,
		dispatcher: dispatcher,
		opts:       opts.withDefaults(),
		leaseKey:   leaseKeyFor("outbox:" + label),
		label:      label,
		m:          sharedMetrics(),
	}, nil
}

func (r *Relay) Run(ctx context.Context) error {
	if ctx == nil {
		return invalidConfig("ctx is required")
	}
	if !r.opts.SingleActive {
		r.m.leader.WithLabelValues(r.label).Set(1)
		return r.poll(ctx, nil)
	}

	for {
		conn, leader, err := r.tryLease(ctx)
		if err != nil {
			if ctxErr := r.wait(ctx); ctxErr != nil {
				return ctxErr
			}
			continue
		}
		if !leader {
			r.m.leader.WithLabelValues(r.label).Set(0)
			if ctxErr := r.wait(ctx); ctxErr != nil {
				return ctxErr
			}
			continue
		}

		r.m.leader.WithLabelValues(r.label).Set(1)
		r.opts.Logger.WithField("table", r.label).Info("outbox: relay became leader")

		err = r.poll(ctx, conn)
		_ = r.releaseLease(context.Background(), conn)
		conn.Release()
		return err
	}
}

// tryLease acquires a pooled connection and races for the advisory
// lock on it. The connection is released unless we won: the lock is
// session-scoped and must stay on the winning connection.
func (r *Relay) tryLease(ctx context.Context) (*pgxpool.Conn, bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		r.opts.Logger.WithError(err).Warn("outbox: acquire connection for leader election")
		return nil, false, err
	}

	var won bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1::bigint)`, r.leaseKey).Scan(&won); err != nil {
		conn.Release()
		r.opts.Logger.WithError(err).Warn("outbox: advisory lock attempt")
		return nil, false, err
	}
	if !won {
		conn.Release()
		return nil, false, nil
	}
	return conn, true, nil
}

func (r *Relay) releaseLease(ctx context.Context, conn *pgxpool.Conn) error {
	var ok bool
	return conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1::bigint)`, r.leaseKey).Scan(&ok)
}

func (r *Relay) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.opts.PollInterval):
		return nil
	}
}

func (r *Relay) poll(ctx context.Context, conn *pgxpool.Conn) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	nextDepthSample := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(nextDepthSample) {
			if err := r.sampleDepth(ctx, conn); err != nil {
				r.opts.Logger.WithError(err).Debug("outbox: queue depth sample failed")
			}
			nextDepthSample = time.Now().Add(r.opts.ObserveQueueDepthEvery)
		}

		if err := r.drain(ctx, conn); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.opts.Logger.WithError(err).Warn("outbox: drain tick failed")
		}
	}
}

// pendingEvent is one claimed outbox row, with Attempts already
// counting the in-flight delivery.
type pendingEvent struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Topic    string
	Payload  []byte
	EventID  uuid.UUID
	Sequence int64
	Attempts int
}

func (r *Relay) drain(ctx context.Context, conn *pgxpool.Conn) error {
	batch, err := r.claimBatch(ctx, conn)
	if err != nil {
		return err
	}

	for _, ev := range batch {
		dispatchCtx := ctx
		var cancel func()
		if r.opts.DispatchTimeout > 0 {
			dispatchCtx, cancel = context.WithTimeout(ctx, r.opts.DispatchTimeout)
		}

		start := time.Now()
		err := r.dispatcher.Dispatch(dispatchCtx, DispatchedMessage{
			Meta: Meta{
				Table:    r.table,
				TenantID: ev.TenantID,
				Topic:    ev.Topic,
				EventID:  ev.EventID,
				Sequence: ev.Sequence,
				Attempts: ev.Attempts,
			},
			Payload: ev.Payload,
		})
		if cancel != nil {
			cancel()
		}
		r.observeDispatch(ev.Topic, err, time.Since(start))

		switch {
		case err == nil:
			if e := r.complete(ctx, conn, ev.ID); e != nil {
				r.opts.Logger.WithError(e).WithFields(ev.fields(r.label)).Warn("outbox: complete failed")
			}
		case ev.Attempts >= r.opts.MaxAttempts:
			r.m.dead.WithLabelValues(r.label, ev.Topic).Inc()
			if e := r.park(ctx, conn, ev.ID, clipError(err, r.opts.LastErrorMaxLen)); e != nil {
				r.opts.Logger.WithError(e).WithFields(ev.fields(r.label)).Warn("outbox: park failed")
			}
		default:
			next := time.Now().Add(retryDelay(ev.Attempts, r.opts.MaxBackoff) + jitter(r.opts.Rand, r.opts.JitterMax))
			if e := r.reschedule(ctx, conn, ev.ID, clipError(err, r.opts.LastErrorMaxLen), next); e != nil {
				r.opts.Logger.WithError(e).WithFields(ev.fields(r.label)).Warn("outbox: reschedule failed")
			}
		}
	}
	return nil
}

// claimBatch is the only path needing an explicit transaction: the
// SELECT FOR UPDATE SKIP LOCKED and the lock update must be atomic.
// Everything after runs as single statements.
func (r *Relay) claimBatch(ctx context.Context, conn *pgxpool.Conn) ([]pendingEvent, error) {
	now := time.Now()

	tx, err := r.begin(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := fmt.Sprintf(
		`SELECT id, tenant_id, topic, payload, event_id, sequence, attempts
		   FROM %s
		  WHERE published_at IS NULL
		    AND available_at <= $1
		    AND attempts < $2
		    AND (locked_at IS NULL OR locked_at < $3)
		  ORDER BY available_at, sequence
		  LIMIT $4
		  FOR UPDATE SKIP LOCKED`,
		r.table.Sanitize(),
	)
	rows, err := tx.Query(ctx, q, now, r.opts.MaxAttempts, now.Add(-r.opts.LockTTL), r.opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("outbox claim select: %w", err)
	}
	defer rows.Close()

	var batch []pendingEvent
	var ids []uuid.UUID
	for rows.Next() {
		var ev pendingEvent
		if err := rows.Scan(&ev.ID, &ev.TenantID, &ev.Topic, &ev.Payload, &ev.EventID, &ev.Sequence, &ev.Attempts); err != nil {
			return nil, fmt.Errorf("outbox claim scan: %w", err)
		}
		ev.Attempts++
		batch = append(batch, ev)
		ids = append(ids, ev.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox claim rows: %w", err)
	}

	if len(ids) > 0 {
		update := fmt.Sprintf(`UPDATE %s SET locked_at = $1, attempts = attempts + 1 WHERE id = ANY($2)`, r.table.Sanitize())
		if _, err := tx.Exec(ctx, update, now, pgtype.FlatArray[uuid.UUID](ids)); err != nil {
			return nil, fmt.Errorf("outbox claim update: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *Relay) complete(ctx context.Context, conn *pgxpool.Conn, id uuid.UUID) error {
	q := fmt.Sprintf(
		`UPDATE %s SET published_at = now(), locked_at = NULL, last_error = NULL
		  WHERE id = $1 AND published_at IS NULL`,
		r.table.Sanitize(),
	)
	if _, err := r.querier(conn).Exec(ctx, q, id); err != nil {
		return fmt.Errorf("outbox complete: %w", err)
	}
	return nil
}

func (r *Relay) reschedule(ctx context.Context, conn *pgxpool.Conn, id uuid.UUID, lastError string, next time.Time) error {
	q := fmt.Sprintf(
		`UPDATE %s SET locked_at = NULL, last_error = $2, available_at = $3
		  WHERE id = $1 AND published_at IS NULL`,
		r.table.Sanitize(),
	)
	if _, err := r.querier(conn).Exec(ctx, q, id, lastError, next); err != nil {
		return fmt.Errorf("outbox reschedule: %w", err)
	}
	return nil
}

// park clears the lock on an event that exhausted its attempts; with
// attempts at the budget it no longer matches the claim query and sits
// until the cleaner's dead retention removes it.
func (r *Relay) park(ctx context.Context, conn *pgxpool.Conn, id uuid.UUID, lastError string) error {
	q := fmt.Sprintf(
		`UPDATE %s SET locked_at = NULL, last_error = $2, available_at = now()
		  WHERE id = $1 AND published_at IS NULL`,
		r.table.Sanitize(),
	)
	if _, err := r.querier(conn).Exec(ctx, q, id, lastError); err != nil {
		return fmt.Errorf("outbox park: %w", err)
	}
	return nil
}

func (r *Relay) sampleDepth(ctx context.Context, conn *pgxpool.Conn) error {
	db := r.querier(conn)
	name := r.table.Sanitize()

	var pending, locked int64
	if err := db.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s WHERE published_at IS NULL`, name)).Scan(&pending); err != nil {
		return fmt.Errorf("outbox pending count: %w", err)
	}
	if err := db.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s WHERE published_at IS NULL AND locked_at IS NOT NULL`, name)).Scan(&locked); err != nil {
		return fmt.Errorf("outbox locked count: %w", err)
	}

	r.m.pending.WithLabelValues(r.label).Set(float64(pending))
	r.m.locked.WithLabelValues(r.label).Set(float64(locked))
	return nil
}

func (r *Relay) observeDispatch(topic string, err error, latency time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.m.dispatched.WithLabelValues(r.label, topic, result).Inc()
	r.m.latency.WithLabelValues(r.label, topic, result).Observe(latency.Seconds())
}

// querier returns the leader connection in single-active mode so every
// statement shares the advisory-lock session; the pool otherwise.
func (r *Relay) querier(conn *pgxpool.Conn) interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
} {
	if conn != nil {
		return conn
	}
	return r.pool
}

func (r *Relay) begin(ctx context.Context, conn *pgxpool.Conn) (pgx.Tx, error) {
	if conn != nil {
		return conn.BeginTx(ctx, pgx.TxOptions{})
	}
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

func (ev pendingEvent) fields(table string) map[string]any {
	return map[string]any{
		"table":     table,
		"topic":     ev.Topic,
		"event_id":  ev.EventID.String(),
		"tenant_id": ev.TenantID.String(),
		"sequence":  ev.Sequence,
		"attempts":  ev.Attempts,
	}
}

func leaseKeyFor(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
