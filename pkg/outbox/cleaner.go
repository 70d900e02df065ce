package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Cleaner prunes an outbox table on an interval: published rows past
// Retention, and parked rows past DeadRetention when that is set.
type Cleaner struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
	opts  CleanerOptions
	label string
	m     *relayMetrics
}

func NewCleaner(pool *pgxpool.Pool, table pgx.Identifier, opts CleanerOptions) (*Cleaner, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	if opts.DeadRetention > 0 && opts.DeadAttemptsThreshold <= 0 {
		return nil, invalidConfig("dead retention requires DeadAttemptsThreshold > 0")
	}
	return &Cleaner{
		pool:  pool,
		table: table,
		opts:  opts.withDefaults(),
		label: TableLabel(table),
		m:     sharedMetrics(),
	}, nil
}

// Run blocks until ctx is done. Disabled cleaners return immediately
// so callers can wire one unconditionally.
func (c *Cleaner) Run(ctx context.Context) error {
	if ctx == nil {
		return invalidConfig("ctx is required")
	}
	if !c.opts.Enabled {
		return nil
	}

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := c.prune(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.opts.Logger.WithError(err).WithField("table", c.label).Warn("outbox: cleaner tick failed")
		}
	}
}

// prune runs both deletes in one transaction. For a dead event the
// log line here is the last trace of it anywhere.
func (c *Cleaner) prune(ctx context.Context) error {
	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	name := c.table.Sanitize()

	tag, err := tx.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE published_at IS NOT NULL AND published_at < $1`, name),
		time.Now().Add(-c.opts.Retention),
	)
	if err != nil {
		return fmt.Errorf("outbox cleaner delete published: %w", err)
	}
	published := tag.RowsAffected()

	var dead int64
	if c.opts.DeadRetention > 0 {
		tag, err := tx.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s
			  WHERE published_at IS NULL
			    AND attempts >= $1
			    AND created_at < $2`, name),
			c.opts.DeadAttemptsThreshold,
			time.Now().Add(-c.opts.DeadRetention),
		)
		if err != nil {
			return fmt.Errorf("outbox cleaner delete dead: %w", err)
		}
		dead = tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	c.m.pruned.WithLabelValues(c.label, "published").Add(float64(published))
	c.m.pruned.WithLabelValues(c.label, "dead").Add(float64(dead))
	if published > 0 || dead > 0 {
		c.opts.Logger.WithFields(logrus.Fields{
			"table":     c.label,
			"published": published,
			"dead":      dead,
		}).Info("outbox: pruned rows")
	}
	return nil
}
