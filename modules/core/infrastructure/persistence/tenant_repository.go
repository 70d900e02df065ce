package persistence

import (
	"context"
	stderrors "errors"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dchoinie/church-membership-app-sub003/modules/core/domain/entities/tenant"
	"github.com/dchoinie/church-membership-app-sub003/modules/core/infrastructure/persistence/models"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/mapping"
)

var ErrTenantNotFound = stderrors.New("tenant not found")

// tenants is the one table without a tenant_id column; lookups here are
// what resolve the tenant in the first place.
const tenantFindQuery = `SELECT id, name, domain, is_active, created_at, updated_at FROM tenants`

const tenantInsertQuery = `
	INSERT INTO tenants (id, name, domain, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, name, domain, is_active, created_at, updated_at`

const tenantUpdateQuery = `
	UPDATE tenants
	SET name = $2, domain = $3, is_active = $4, updated_at = $5
	WHERE id = $1
	RETURNING id, name, domain, is_active, created_at, updated_at`

type TenantRepository struct{}

func NewTenantRepository() tenant.Repository {
	return &TenantRepository{}
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (tenant.Tenant, error) {
	return r.queryOne(ctx, tenantFindQuery+" WHERE id = $1", id.String())
}

func (r *TenantRepository) GetByDomain(ctx context.Context, domain string) (tenant.Tenant, error) {
	return r.queryOne(ctx, tenantFindQuery+" WHERE domain = $1", tenant.NormalizeDomain(domain))
}

// Create and Update trust the entity's domain normalization; only raw
// lookup input needs normalizing here.
func (r *TenantRepository) Create(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "failed to get transaction")
	}

	row := tx.QueryRow(ctx, tenantInsertQuery,
		t.ID().String(),
		t.Name(),
		mapping.ValueToSQLNullString(t.Domain()),
		t.IsActive(),
		t.CreatedAt(),
		t.UpdatedAt(),
	)
	created, err := scanTenant(row)
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "failed to create tenant")
	}
	return created, nil
}

func (r *TenantRepository) Update(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "failed to get transaction")
	}

	row := tx.QueryRow(ctx, tenantUpdateQuery,
		t.ID().String(),
		t.Name(),
		mapping.ValueToSQLNullString(t.Domain()),
		t.IsActive(),
		t.UpdatedAt(),
	)
	updated, err := scanTenant(row)
	if err != nil {
		if stderrors.Is(err, ErrTenantNotFound) {
			return tenant.Tenant{}, ErrTenantNotFound
		}
		return tenant.Tenant{}, errors.Wrap(err, "failed to update tenant")
	}
	return updated, nil
}

func (r *TenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	_, err = tx.Exec(ctx, "DELETE FROM tenants WHERE id = $1", id.String())
	return err
}

func (r *TenantRepository) List(ctx context.Context) ([]tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, tenantFindQuery+" ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tenants")
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return tenants, nil
}

func (r *TenantRepository) queryOne(ctx context.Context, query string, args ...any) (tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "failed to get transaction")
	}
	return scanTenant(tx.QueryRow(ctx, query, args...))
}

func scanTenant(row pgx.Row) (tenant.Tenant, error) {
	var t models.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Domain, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return tenant.Tenant{}, ErrTenantNotFound
	}
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "failed to scan tenant row")
	}
	return toDomainTenant(t), nil
}

func toDomainTenant(t models.Tenant) tenant.Tenant {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		id = uuid.Nil
	}
	return tenant.New(
		t.Name,
		mapping.SQLNullStringToValue(t.Domain),
		tenant.WithID(id),
		tenant.WithIsActive(t.IsActive),
		tenant.WithCreatedAt(t.CreatedAt),
		tenant.WithUpdatedAt(t.UpdatedAt),
	)
}
