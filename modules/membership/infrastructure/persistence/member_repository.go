package persistence

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/member"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/infrastructure/persistence/models"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/mapping"
)

var (
	ErrMemberNotFound = stderrors.New("member not found")
	ErrEmailExists    = stderrors.New("email already exists")
)

const uniqueViolation = "23505"

const memberFindQuery = `
	SELECT id,
	       tenant_id,
	       household_id,
	       envelope_number,
	       first_name,
	       middle_name,
	       last_name,
	       email,
	       sex,
	       date_of_birth,
	       sequence,
	       participation,
	       received_by,
	       received_date,
	       removed_by,
	       removed_date,
	       created_at,
	       updated_at
	FROM members`

const memberInsertQuery = `
	INSERT INTO members (
		id, tenant_id, household_id, envelope_number,
		first_name, middle_name, last_name, email,
		sex, date_of_birth, sequence, participation,
		received_by, received_date, removed_by, removed_date,
		created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

type MemberRepository struct{}

func NewMemberRepository() member.Repository {
	return &MemberRepository{}
}

func (r *MemberRepository) GetPaginated(ctx context.Context, params *member.FindParams) ([]member.Member, int64, error) {
	if params == nil {
		params = &member.FindParams{}
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
	if params.Q != "" {
		where += " AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)"
		args = append(args, "%"+params.Q+"%")
	}

	var total int64
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM members"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count members")
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		"%s%s ORDER BY last_name, first_name, id LIMIT $%d OFFSET $%d",
		memberFindQuery, where, len(args)-1, len(args),
	)

	out, err := r.queryMembers(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *MemberRepository) GetAll(ctx context.Context) ([]member.Member, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return r.queryMembers(ctx, memberFindQuery+" WHERE tenant_id = $1 ORDER BY created_at, id", tenantID.String())
}

func (r *MemberRepository) GetByID(ctx context.Context, id uuid.UUID) (member.Member, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return member.Member{}, err
	}

	members, err := r.queryMembers(ctx, memberFindQuery+" WHERE tenant_id = $1 AND id = $2", tenantID.String(), id.String())
	if err != nil {
		return member.Member{}, err
	}
	if len(members) == 0 {
		return member.Member{}, ErrMemberNotFound
	}
	return members[0], nil
}

func (r *MemberRepository) GetByHousehold(ctx context.Context, householdID uuid.UUID) ([]member.Member, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return r.queryMembers(
		ctx,
		memberFindQuery+" WHERE tenant_id = $1 AND household_id = $2 ORDER BY created_at, id",
		tenantID.String(),
		householdID.String(),
	)
}

func (r *MemberRepository) EmailsInUse(ctx context.Context) (map[string]struct{}, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(
		ctx,
		`SELECT lower(email) FROM members WHERE tenant_id = $1 AND email IS NOT NULL AND email <> ''`,
		tenantID.String(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	emails := make(map[string]struct{})
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, errors.Wrap(err, "failed to scan email")
		}
		emails[email] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return emails, nil
}

func (r *MemberRepository) Create(ctx context.Context, m member.Member) (member.Member, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "failed to get transaction")
	}

	m, args, err := r.insertArgs(ctx, m)
	if err != nil {
		return member.Member{}, err
	}

	if _, err := tx.Exec(ctx, memberInsertQuery, args...); err != nil {
		return member.Member{}, mapMemberWriteError(err)
	}
	return r.GetByID(ctx, m.ID())
}

// CreateBatch inserts the members in input order over a single batched
// round-trip. It runs inside the caller's transaction, so either every
// member lands or none do.
func (r *MemberRepository) CreateBatch(ctx context.Context, members []member.Member) ([]member.Member, error) {
	if len(members) == 0 {
		return nil, nil
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	out := make([]member.Member, 0, len(members))
	batch := &pgx.Batch{}
	for _, m := range members {
		withID, args, err := r.insertArgs(ctx, m)
		if err != nil {
			return nil, err
		}
		out = append(out, withID)
		batch.Queue(memberInsertQuery, args...)
	}

	results := tx.SendBatch(ctx, batch)
	defer func() {
		_ = results.Close()
	}()
	for range members {
		if _, err := results.Exec(); err != nil {
			return nil, mapMemberWriteError(err)
		}
	}
	if err := results.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close batch")
	}
	return out, nil
}

func (r *MemberRepository) Update(ctx context.Context, m member.Member) (member.Member, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return member.Member{}, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "failed to get transaction")
	}

	query := `
		UPDATE members
		SET household_id = $3,
		    envelope_number = $4,
		    first_name = $5,
		    middle_name = $6,
		    last_name = $7,
		    email = $8,
		    sex = $9,
		    date_of_birth = $10,
		    sequence = $11,
		    participation = $12,
		    received_by = $13,
		    received_date = $14,
		    removed_by = $15,
		    removed_date = $16,
		    updated_at = $17
		WHERE tenant_id = $1 AND id = $2`

	tag, err := tx.Exec(
		ctx,
		query,
		tenantID.String(),
		m.ID().String(),
		m.HouseholdID().String(),
		mapping.PointerToSQLNullInt32(m.EnvelopeNumber()),
		m.FirstName(),
		mapping.ValueToSQLNullString(m.MiddleName()),
		m.LastName(),
		mapping.ValueToSQLNullString(m.Email()),
		mapping.ValueToSQLNullString(string(m.Sex())),
		mapping.PointerToSQLNullTime(m.DateOfBirth()),
		mapping.ValueToSQLNullString(string(m.Sequence())),
		mapping.ValueToSQLNullString(string(m.Participation())),
		mapping.ValueToSQLNullString(m.ReceivedBy()),
		mapping.PointerToSQLNullTime(m.ReceivedDate()),
		mapping.ValueToSQLNullString(m.RemovedBy()),
		mapping.PointerToSQLNullTime(m.RemovedDate()),
		time.Now(),
	)
	if err != nil {
		return member.Member{}, mapMemberWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return member.Member{}, ErrMemberNotFound
	}
	return r.GetByID(ctx, m.ID())
}

func (r *MemberRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	tag, err := tx.Exec(ctx, `DELETE FROM members WHERE tenant_id = $1 AND id = $2`, tenantID.String(), id.String())
	if err != nil {
		return errors.Wrap(err, "failed to delete member")
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// insertArgs fills generated columns (id, timestamps) and renders the
// positional arguments for memberInsertQuery. The ctx tenant always wins
// over whatever the aggregate carries.
func (r *MemberRepository) insertArgs(ctx context.Context, m member.Member) (member.Member, []interface{}, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return member.Member{}, nil, err
	}

	now := time.Now()
	createdAt := m.CreatedAt()
	if createdAt.IsZero() {
		createdAt = now
	}

	id := m.ID()
	if id == uuid.Nil {
		id = uuid.New()
	}

	m = member.New(
		tenantID,
		m.HouseholdID(),
		m.FirstName(),
		m.LastName(),
		member.WithID(id),
		member.WithEnvelopeNumber(m.EnvelopeNumber()),
		member.WithMiddleName(m.MiddleName()),
		member.WithEmail(m.Email()),
		member.WithSex(m.Sex()),
		member.WithDateOfBirth(m.DateOfBirth()),
		member.WithSequence(m.Sequence()),
		member.WithParticipation(m.Participation()),
		member.WithReceived(m.ReceivedBy(), m.ReceivedDate()),
		member.WithRemoved(m.RemovedBy(), m.RemovedDate()),
		member.WithCreatedAt(createdAt),
		member.WithUpdatedAt(now),
	)

	args := []interface{}{
		id.String(),
		tenantID.String(),
		m.HouseholdID().String(),
		mapping.PointerToSQLNullInt32(m.EnvelopeNumber()),
		m.FirstName(),
		mapping.ValueToSQLNullString(m.MiddleName()),
		m.LastName(),
		mapping.ValueToSQLNullString(m.Email()),
		mapping.ValueToSQLNullString(string(m.Sex())),
		mapping.PointerToSQLNullTime(m.DateOfBirth()),
		mapping.ValueToSQLNullString(string(m.Sequence())),
		mapping.ValueToSQLNullString(string(m.Participation())),
		mapping.ValueToSQLNullString(m.ReceivedBy()),
		mapping.PointerToSQLNullTime(m.ReceivedDate()),
		mapping.ValueToSQLNullString(m.RemovedBy()),
		mapping.PointerToSQLNullTime(m.RemovedDate()),
		createdAt,
		now,
	}
	return m, args, nil
}

func (r *MemberRepository) queryMembers(ctx context.Context, query string, args ...interface{}) ([]member.Member, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var members []member.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.HouseholdID,
			&m.EnvelopeNumber,
			&m.FirstName,
			&m.MiddleName,
			&m.LastName,
			&m.Email,
			&m.Sex,
			&m.DateOfBirth,
			&m.Sequence,
			&m.Participation,
			&m.ReceivedBy,
			&m.ReceivedDate,
			&m.RemovedBy,
			&m.RemovedDate,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan member row")
		}
		members = append(members, toDomainMember(&m))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return members, nil
}

func mapMemberWriteError(err error) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailExists
	}
	return errors.Wrap(err, "failed to write member")
}

func toDomainMember(m *models.Member) member.Member {
	return member.New(
		parseUUID(m.TenantID),
		parseUUID(m.HouseholdID),
		m.FirstName,
		m.LastName,
		member.WithID(parseUUID(m.ID)),
		member.WithEnvelopeNumber(mapping.SQLNullInt32ToPointer(m.EnvelopeNumber)),
		member.WithMiddleName(mapping.SQLNullStringToValue(m.MiddleName)),
		member.WithEmail(mapping.SQLNullStringToValue(m.Email)),
		member.WithSex(member.Sex(mapping.SQLNullStringToValue(m.Sex))),
		member.WithDateOfBirth(mapping.SQLNullTimeToPointer(m.DateOfBirth)),
		member.WithSequence(member.Sequence(mapping.SQLNullStringToValue(m.Sequence))),
		member.WithParticipation(member.Participation(mapping.SQLNullStringToValue(m.Participation))),
		member.WithReceived(mapping.SQLNullStringToValue(m.ReceivedBy), mapping.SQLNullTimeToPointer(m.ReceivedDate)),
		member.WithRemoved(mapping.SQLNullStringToValue(m.RemovedBy), mapping.SQLNullTimeToPointer(m.RemovedDate)),
		member.WithCreatedAt(m.CreatedAt),
		member.WithUpdatedAt(m.UpdatedAt),
	)
}

func parseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
