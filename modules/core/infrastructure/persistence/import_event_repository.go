package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dchoinie/church-membership-app-sub003/modules/core/domain/entities/importevent"
	"github.com/dchoinie/church-membership-app-sub003/modules/core/infrastructure/persistence/models"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
)

const (
	importEventFindQuery = `SELECT id, event_id, entity, success_count, failed_count, occurred_at FROM import_history`

	defaultImportEventLimit = 50
)

type ImportEventRepository struct{}

func NewImportEventRepository() importevent.Repository {
	return &ImportEventRepository{}
}

func (r *ImportEventRepository) Record(ctx context.Context, e *importevent.ImportEvent) (bool, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return false, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO import_history (id, tenant_id, event_id, entity, success_count, failed_count, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id
	`
	var idStr string
	err = tx.QueryRow(
		ctx,
		query,
		e.ID().String(),
		tenantID.String(),
		e.EventID().String(),
		e.Entity(),
		e.SuccessCount(),
		e.FailedCount(),
		e.OccurredAt(),
	).Scan(&idStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to record import event")
	}
	return true, nil
}

func (r *ImportEventRepository) List(ctx context.Context, limit int) ([]*importevent.ImportEvent, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultImportEventLimit
	}

	rows, err := tx.Query(
		ctx,
		importEventFindQuery+" WHERE tenant_id = $1 ORDER BY occurred_at DESC, id LIMIT $2",
		tenantID.String(),
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list import events")
	}
	defer rows.Close()

	var events []*importevent.ImportEvent
	for rows.Next() {
		var m models.ImportEvent
		if err := rows.Scan(
			&m.ID,
			&m.EventID,
			&m.Entity,
			&m.SuccessCount,
			&m.FailedCount,
			&m.OccurredAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan import event row")
		}
		events = append(events, toDomainImportEvent(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return events, nil
}

func toDomainImportEvent(m *models.ImportEvent) *importevent.ImportEvent {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		id = uuid.Nil
	}
	eventID, err := uuid.Parse(m.EventID)
	if err != nil {
		eventID = uuid.Nil
	}

	return importevent.New(
		m.Entity,
		eventID,
		m.SuccessCount,
		m.FailedCount,
		importevent.WithID(id),
		importevent.WithOccurredAt(m.OccurredAt),
	)
}
