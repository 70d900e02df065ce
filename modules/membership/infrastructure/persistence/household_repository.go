package persistence

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/household"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/infrastructure/persistence/models"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/mapping"
)

var ErrHouseholdNotFound = stderrors.New("household not found")

const householdFindQuery = `
	SELECT id, tenant_id, name, head_id, created_at, updated_at
	FROM households`

type HouseholdRepository struct{}

func NewHouseholdRepository() household.Repository {
	return &HouseholdRepository{}
}

func (r *HouseholdRepository) GetByID(ctx context.Context, id uuid.UUID) (household.Household, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return household.Household{}, err
	}

	households, err := r.queryHouseholds(
		ctx,
		householdFindQuery+" WHERE tenant_id = $1 AND id = $2",
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return household.Household{}, err
	}
	if len(households) == 0 {
		return household.Household{}, ErrHouseholdNotFound
	}
	return households[0], nil
}

func (r *HouseholdRepository) GetAll(ctx context.Context) ([]household.Household, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return r.queryHouseholds(ctx, householdFindQuery+" WHERE tenant_id = $1 ORDER BY name, id", tenantID.String())
}

func (r *HouseholdRepository) Create(ctx context.Context, h household.Household) (household.Household, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return household.Household{}, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return household.Household{}, errors.Wrap(err, "failed to get transaction")
	}

	id := h.ID()
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now()
	createdAt := h.CreatedAt()
	if createdAt.IsZero() {
		createdAt = now
	}

	var headID interface{}
	if h.HeadID() != nil {
		headID = h.HeadID().String()
	}

	query := `
		INSERT INTO households (id, tenant_id, name, head_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.Exec(
		ctx,
		query,
		id.String(),
		tenantID.String(),
		h.Name(),
		headID,
		createdAt,
		now,
	); err != nil {
		return household.Household{}, errors.Wrap(err, "failed to insert household")
	}
	return r.GetByID(ctx, id)
}

func (r *HouseholdRepository) Update(ctx context.Context, h household.Household) (household.Household, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return household.Household{}, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return household.Household{}, errors.Wrap(err, "failed to get transaction")
	}

	var headID interface{}
	if h.HeadID() != nil {
		headID = h.HeadID().String()
	}

	tag, err := tx.Exec(
		ctx,
		`UPDATE households SET name = $3, head_id = $4, updated_at = $5 WHERE tenant_id = $1 AND id = $2`,
		tenantID.String(),
		h.ID().String(),
		h.Name(),
		headID,
		time.Now(),
	)
	if err != nil {
		return household.Household{}, errors.Wrap(err, "failed to update household")
	}
	if tag.RowsAffected() == 0 {
		return household.Household{}, ErrHouseholdNotFound
	}
	return r.GetByID(ctx, h.ID())
}

func (r *HouseholdRepository) SetHead(ctx context.Context, householdID uuid.UUID, memberID *uuid.UUID) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	var headID interface{}
	if memberID != nil {
		headID = memberID.String()
	}

	tag, err := tx.Exec(
		ctx,
		`UPDATE households SET head_id = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2`,
		tenantID.String(),
		householdID.String(),
		headID,
		time.Now(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to set household head")
	}
	if tag.RowsAffected() == 0 {
		return ErrHouseholdNotFound
	}
	return nil
}

func (r *HouseholdRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	tag, err := tx.Exec(ctx, `DELETE FROM households WHERE tenant_id = $1 AND id = $2`, tenantID.String(), id.String())
	if err != nil {
		return errors.Wrap(err, "failed to delete household")
	}
	if tag.RowsAffected() == 0 {
		return ErrHouseholdNotFound
	}
	return nil
}

func (r *HouseholdRepository) queryHouseholds(ctx context.Context, query string, args ...interface{}) ([]household.Household, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var households []household.Household
	for rows.Next() {
		var h models.Household
		if err := rows.Scan(
			&h.ID,
			&h.TenantID,
			&h.Name,
			&h.HeadID,
			&h.CreatedAt,
			&h.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan household row")
		}
		households = append(households, toDomainHousehold(&h))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return households, nil
}

func toDomainHousehold(h *models.Household) household.Household {
	var headID *uuid.UUID
	if raw := mapping.SQLNullStringToValue(h.HeadID); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			headID = &id
		}
	}

	return household.New(
		parseUUID(h.TenantID),
		h.Name,
		household.WithID(parseUUID(h.ID)),
		household.WithHead(headID),
		household.WithCreatedAt(h.CreatedAt),
		household.WithUpdatedAt(h.UpdatedAt),
	)
}
