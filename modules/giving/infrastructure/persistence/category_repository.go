package persistence

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/category"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/infrastructure/persistence/models"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
)

var (
	ErrCategoryNotFound = stderrors.New("category not found")
	ErrCategoryExists   = stderrors.New("category name already exists")
	ErrCategoryInUse    = stderrors.New("category is referenced by giving records")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const categoryFindQuery = `
	SELECT id, tenant_id, name, slug, position, active, created_at, updated_at
	FROM giving_categories`

type CategoryRepository struct{}

func NewCategoryRepository() category.Repository {
	return &CategoryRepository{}
}

func (r *CategoryRepository) GetAll(ctx context.Context) ([]category.Category, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return r.queryCategories(
		ctx,
		categoryFindQuery+" WHERE tenant_id = $1 ORDER BY position, name, id",
		tenantID.String(),
	)
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (category.Category, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return category.Category{}, err
	}

	categories, err := r.queryCategories(
		ctx,
		categoryFindQuery+" WHERE tenant_id = $1 AND id = $2",
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return category.Category{}, err
	}
	if len(categories) == 0 {
		return category.Category{}, ErrCategoryNotFound
	}
	return categories[0], nil
}

func (r *CategoryRepository) Create(ctx context.Context, c category.Category) (category.Category, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return category.Category{}, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return category.Category{}, errors.Wrap(err, "failed to get transaction")
	}

	id := c.ID()
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now()
	createdAt := c.CreatedAt()
	if createdAt.IsZero() {
		createdAt = now
	}

	query := `
		INSERT INTO giving_categories (id, tenant_id, name, slug, position, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.Exec(
		ctx,
		query,
		id.String(),
		tenantID.String(),
		c.Name(),
		c.Slug(),
		c.Position(),
		c.Active(),
		createdAt,
		now,
	); err != nil {
		return category.Category{}, mapCategoryWriteError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *CategoryRepository) Update(ctx context.Context, c category.Category) (category.Category, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return category.Category{}, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return category.Category{}, errors.Wrap(err, "failed to get transaction")
	}

	tag, err := tx.Exec(
		ctx,
		`UPDATE giving_categories
		 SET name = $3, slug = $4, position = $5, active = $6, updated_at = $7
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID.String(),
		c.ID().String(),
		c.Name(),
		c.Slug(),
		c.Position(),
		c.Active(),
		time.Now(),
	)
	if err != nil {
		return category.Category{}, mapCategoryWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return category.Category{}, ErrCategoryNotFound
	}
	return r.GetByID(ctx, c.ID())
}

func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	tag, err := tx.Exec(
		ctx,
		`DELETE FROM giving_categories WHERE tenant_id = $1 AND id = $2`,
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrCategoryInUse
		}
		return errors.Wrap(err, "failed to delete category")
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) queryCategories(ctx context.Context, query string, args ...interface{}) ([]category.Category, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var categories []category.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(
			&c.ID,
			&c.TenantID,
			&c.Name,
			&c.Slug,
			&c.Position,
			&c.Active,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan category row")
		}
		categories = append(categories, toDomainCategory(&c))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return categories, nil
}

func mapCategoryWriteError(err error) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrCategoryExists
	}
	return errors.Wrap(err, "failed to write category")
}

func toDomainCategory(c *models.Category) category.Category {
	return category.New(
		parseUUID(c.TenantID),
		c.Name,
		category.WithID(parseUUID(c.ID)),
		category.WithSlug(c.Slug),
		category.WithPosition(c.Position),
		category.WithActive(c.Active),
		category.WithCreatedAt(c.CreatedAt),
		category.WithUpdatedAt(c.UpdatedAt),
	)
}

func parseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
