package persistence

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/giving"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/infrastructure/persistence/models"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/mapping"
)

var ErrRecordNotFound = stderrors.New("giving record not found")

const recordFindQuery = `
	SELECT id, tenant_id, member_id, envelope_number, given_at, check_number, notes, created_at, updated_at
	FROM giving_records`

const recordInsertQuery = `
	INSERT INTO giving_records (
		id, tenant_id, member_id, envelope_number,
		given_at, check_number, notes, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const itemInsertQuery = `
	INSERT INTO giving_items (id, tenant_id, record_id, category_id, amount)
	VALUES ($1, $2, $3, $4, $5)`

type GivingRepository struct{}

func NewGivingRepository() giving.Repository {
	return &GivingRepository{}
}

func (r *GivingRepository) GetPaginated(ctx context.Context, params *giving.FindParams) ([]giving.Record, int64, error) {
	if params == nil {
		params = &giving.FindParams{}
	}

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get transaction")
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	where := " WHERE tenant_id = $1"
	args := []interface{}{tenantID.String()}
	if params.MemberID != uuid.Nil {
		args = append(args, params.MemberID.String())
		where += fmt.Sprintf(" AND member_id = $%d", len(args))
	}
	if params.From != nil {
		args = append(args, *params.From)
		where += fmt.Sprintf(" AND given_at >= $%d", len(args))
	}
	if params.To != nil {
		args = append(args, *params.To)
		where += fmt.Sprintf(" AND given_at <= $%d", len(args))
	}

	var total int64
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM giving_records"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count giving records")
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		"%s%s ORDER BY given_at DESC, id LIMIT $%d OFFSET $%d",
		recordFindQuery, where, len(args)-1, len(args),
	)

	records, err := r.queryRecords(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *GivingRepository) GetByID(ctx context.Context, id uuid.UUID) (giving.Record, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return giving.Record{}, err
	}

	records, err := r.queryRecords(
		ctx,
		recordFindQuery+" WHERE tenant_id = $1 AND id = $2",
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return giving.Record{}, err
	}
	if len(records) == 0 {
		return giving.Record{}, ErrRecordNotFound
	}
	return records[0], nil
}

// CreateBatch inserts records and their items in input order over a single
// batched round-trip inside the caller's transaction.
func (r *GivingRepository) CreateBatch(ctx context.Context, records []giving.Record) ([]giving.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	now := time.Now()
	out := make([]giving.Record, 0, len(records))
	batch := &pgx.Batch{}
	queued := 0
	for _, rec := range records {
		id := rec.ID()
		if id == uuid.Nil {
			id = uuid.New()
		}
		createdAt := rec.CreatedAt()
		if createdAt.IsZero() {
			createdAt = now
		}

		withID := giving.New(
			tenantID,
			rec.MemberID(),
			rec.GivenAt(),
			rec.Items(),
			giving.WithID(id),
			giving.WithEnvelopeNumber(rec.EnvelopeNumber()),
			giving.WithCheckNumber(rec.CheckNumber()),
			giving.WithNotes(rec.Notes()),
			giving.WithCreatedAt(createdAt),
			giving.WithUpdatedAt(now),
		)
		out = append(out, withID)

		batch.Queue(
			recordInsertQuery,
			id.String(),
			tenantID.String(),
			rec.MemberID().String(),
			mapping.PointerToSQLNullInt32(rec.EnvelopeNumber()),
			rec.GivenAt(),
			mapping.ValueToSQLNullString(rec.CheckNumber()),
			mapping.ValueToSQLNullString(rec.Notes()),
			createdAt,
			now,
		)
		queued++
		for _, item := range rec.Items() {
			batch.Queue(
				itemInsertQuery,
				uuid.New().String(),
				tenantID.String(),
				id.String(),
				item.CategoryID.String(),
				item.Amount,
			)
			queued++
		}
	}

	results := tx.SendBatch(ctx, batch)
	defer func() {
		_ = results.Close()
	}()
	for i := 0; i < queued; i++ {
		if _, err := results.Exec(); err != nil {
			return nil, errors.Wrap(err, "failed to insert giving record")
		}
	}
	if err := results.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close batch")
	}
	return out, nil
}

func (r *GivingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	// Items ride along via ON DELETE CASCADE.
	tag, err := tx.Exec(
		ctx,
		`DELETE FROM giving_records WHERE tenant_id = $1 AND id = $2`,
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to delete giving record")
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *GivingRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]giving.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var dbRecords []models.GivingRecord
	for rows.Next() {
		var rec models.GivingRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.TenantID,
			&rec.MemberID,
			&rec.EnvelopeNumber,
			&rec.GivenAt,
			&rec.CheckNumber,
			&rec.Notes,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan giving record row")
		}
		dbRecords = append(dbRecords, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	if len(dbRecords) == 0 {
		return nil, nil
	}

	items, err := r.queryItems(ctx, dbRecords)
	if err != nil {
		return nil, err
	}

	records := make([]giving.Record, 0, len(dbRecords))
	for i := range dbRecords {
		records = append(records, toDomainRecord(&dbRecords[i], items[dbRecords[i].ID]))
	}
	return records, nil
}

func (r *GivingRepository) queryItems(ctx context.Context, records []models.GivingRecord) (map[string][]giving.Item, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}

	rows, err := tx.Query(
		ctx,
		`SELECT record_id, category_id, amount
		 FROM giving_items
		 WHERE record_id = ANY($1::uuid[])
		 ORDER BY record_id, id`,
		ids,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query giving items")
	}
	defer rows.Close()

	items := make(map[string][]giving.Item, len(records))
	for rows.Next() {
		var it models.GivingItem
		if err := rows.Scan(&it.RecordID, &it.CategoryID, &it.Amount); err != nil {
			return nil, errors.Wrap(err, "failed to scan giving item row")
		}
		items[it.RecordID] = append(items[it.RecordID], giving.Item{
			CategoryID: parseUUID(it.CategoryID),
			Amount:     it.Amount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return items, nil
}

func toDomainRecord(rec *models.GivingRecord, items []giving.Item) giving.Record {
	return giving.New(
		parseUUID(rec.TenantID),
		parseUUID(rec.MemberID),
		rec.GivenAt,
		items,
		giving.WithID(parseUUID(rec.ID)),
		giving.WithEnvelopeNumber(mapping.SQLNullInt32ToPointer(rec.EnvelopeNumber)),
		giving.WithCheckNumber(mapping.SQLNullStringToValue(rec.CheckNumber)),
		giving.WithNotes(mapping.SQLNullStringToValue(rec.Notes)),
		giving.WithCreatedAt(rec.CreatedAt),
		giving.WithUpdatedAt(rec.UpdatedAt),
	)
}
