package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/category"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/giving"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/member"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/constants"
	"github.com/dchoinie/church-membership-app-sub003/pkg/csvimport"
	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
	"github.com/dchoinie/church-membership-app-sub003/pkg/repo"
)

// stubTx satisfies pgx.Tx so services can run their transaction flow
// against in-memory fakes. Repos in these tests never touch it.
type stubTx struct{}

func (stubTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, errors.New("not supported") }
func (stubTx) Commit(ctx context.Context) error          { return nil }
func (stubTx) Rollback(ctx context.Context) error        { return nil }
func (stubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not supported")
}
func (stubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (stubTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (stubTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not supported")
}
func (stubTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}
func (stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (stubTx) Conn() *pgx.Conn                                              { return nil }

type fakeGivingRepo struct {
	created  []giving.Record
	batchErr error
}

func (f *fakeGivingRepo) GetPaginated(ctx context.Context, params *giving.FindParams) ([]giving.Record, int64, error) {
	return f.created, int64(len(f.created)), nil
}

func (f *fakeGivingRepo) GetByID(ctx context.Context, id uuid.UUID) (giving.Record, error) {
	for _, rec := range f.created {
		if rec.ID() == id {
			return rec, nil
		}
	}
	return giving.Record{}, errors.New("not found")
}

func (f *fakeGivingRepo) CreateBatch(ctx context.Context, records []giving.Record) ([]giving.Record, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	f.created = append(f.created, records...)
	return records, nil
}

func (f *fakeGivingRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type fakeCategoryRepo struct {
	categories []category.Category
}

func (f *fakeCategoryRepo) GetAll(ctx context.Context) ([]category.Category, error) {
	return f.categories, nil
}

func (f *fakeCategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (category.Category, error) {
	for _, c := range f.categories {
		if c.ID() == id {
			return c, nil
		}
	}
	return category.Category{}, errors.New("not found")
}

func (f *fakeCategoryRepo) Create(ctx context.Context, c category.Category) (category.Category, error) {
	f.categories = append(f.categories, c)
	return c, nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, c category.Category) (category.Category, error) {
	return c, nil
}

func (f *fakeCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type fakeMemberRepo struct {
	members []member.Member
}

func (f *fakeMemberRepo) GetPaginated(ctx context.Context, params *member.FindParams) ([]member.Member, int64, error) {
	return f.members, int64(len(f.members)), nil
}

func (f *fakeMemberRepo) GetAll(ctx context.Context) ([]member.Member, error) {
	return f.members, nil
}

func (f *fakeMemberRepo) GetByID(ctx context.Context, id uuid.UUID) (member.Member, error) {
	for _, m := range f.members {
		if m.ID() == id {
			return m, nil
		}
	}
	return member.Member{}, errors.New("not found")
}

func (f *fakeMemberRepo) GetByHousehold(ctx context.Context, householdID uuid.UUID) ([]member.Member, error) {
	var out []member.Member
	for _, m := range f.members {
		if m.HouseholdID() == householdID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemberRepo) EmailsInUse(ctx context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (f *fakeMemberRepo) Create(ctx context.Context, m member.Member) (member.Member, error) {
	f.members = append(f.members, m)
	return m, nil
}

func (f *fakeMemberRepo) CreateBatch(ctx context.Context, members []member.Member) ([]member.Member, error) {
	f.members = append(f.members, members...)
	return members, nil
}

func (f *fakeMemberRepo) Update(ctx context.Context, m member.Member) (member.Member, error) {
	return m, nil
}

func (f *fakeMemberRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type fakePublisher struct {
	enqueued []outbox.Message
	err      error
}

func (f *fakePublisher) Enqueue(ctx context.Context, tx repo.Tx, table pgx.Identifier, msg outbox.Message) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.enqueued = append(f.enqueued, msg)
	return int64(len(f.enqueued)), nil
}

func importTestContext(tenantID uuid.UUID) context.Context {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx := context.Background()
	ctx = composables.WithTenantID(ctx, tenantID)
	ctx = composables.WithTx(ctx, stubTx{})
	return context.WithValue(ctx, constants.LoggerKey, logrus.NewEntry(logger))
}

func newTestMember(tenantID uuid.UUID, envelope int, firstName string, sex member.Sex, born string) member.Member {
	opts := []member.Option{
		member.WithID(uuid.New()),
		member.WithEnvelopeNumber(&envelope),
		member.WithSex(sex),
	}
	if born != "" {
		dob, err := time.Parse("2006-01-02", born)
		if err != nil {
			panic(err)
		}
		opts = append(opts, member.WithDateOfBirth(&dob))
	}
	return member.New(tenantID, uuid.New(), firstName, "Larson", opts...)
}

func newGivingImportFixture(tenantID uuid.UUID, members []member.Member, categoryNames ...string) (*GivingImportService, *fakeGivingRepo, *fakePublisher) {
	records := &fakeGivingRepo{}
	publisher := &fakePublisher{}
	categories := &fakeCategoryRepo{categories: testCategories(categoryNames...)}
	svc := NewGivingImportService(records, categories, &fakeMemberRepo{members: members}, publisher)
	return svc, records, publisher
}

func TestGivingImport_CommitsValidRows(t *testing.T) {
	tenantID := uuid.New()
	alice := newTestMember(tenantID, 101, "Alice", member.SexFemale, "1960-04-02")
	bob := newTestMember(tenantID, 102, "Bob", member.SexMale, "1955-11-20")
	svc, records, publisher := newGivingImportFixture(tenantID, []member.Member{alice, bob}, "Current", "Mission")

	data := []byte("Date Given,Envelope Number,Current,Mission\n" +
		"1/5/2025,101,50.00,25.00\n" +
		"2025-01-12,102,30.00,\n")

	result, err := svc.ImportCSV(importTestContext(tenantID), data)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)

	require.Len(t, records.created, 2)
	first := records.created[0]
	assert.Equal(t, alice.ID(), first.MemberID())
	require.NotNil(t, first.EnvelopeNumber())
	assert.Equal(t, 101, *first.EnvelopeNumber())
	assert.Len(t, first.Items(), 2)
	assert.Equal(t, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), first.GivenAt())

	second := records.created[1]
	assert.Equal(t, bob.ID(), second.MemberID())
	assert.Len(t, second.Items(), 1)

	require.Len(t, publisher.enqueued, 1)
	msg := publisher.enqueued[0]
	assert.Equal(t, TopicGivingImportCompleted, msg.Topic)
	assert.Equal(t, tenantID, msg.TenantID)
	assert.JSONEq(t, `{"entity":"giving","success":2,"failed":0}`, string(msg.Payload))
}

func TestGivingImport_ZeroAmountsAreOmitted(t *testing.T) {
	tenantID := uuid.New()
	alice := newTestMember(tenantID, 101, "Alice", member.SexFemale, "1960-04-02")
	svc, records, _ := newGivingImportFixture(tenantID, []member.Member{alice}, "Current", "Mission")

	data := []byte("Date Given,Envelope Number,Current,Mission\n" +
		"1/5/2025,101,50.00,0\n")

	result, err := svc.ImportCSV(importTestContext(tenantID), data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	require.Len(t, records.created, 1)
	assert.Len(t, records.created[0].Items(), 1)
}

func TestGivingImport_RowFailuresDoNotAbort(t *testing.T) {
	tenantID := uuid.New()
	alice := newTestMember(tenantID, 101, "Alice", member.SexFemale, "1960-04-02")
	svc, records, _ := newGivingImportFixture(tenantID, []member.Member{alice}, "Current")

	data := []byte("Date Given,Envelope Number,Current\n" +
		"not-a-date,101,50.00\n" +
		"1/5/2025,101,-5.00\n" +
		"1/5/2025,999,50.00\n" +
		"1/5/2025,101,50.00\n" +
		",101,50.00\n")

	result, err := svc.ImportCSV(importTestContext(tenantID), data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 4, result.Failed)
	assert.Equal(t, 5, result.Success+result.Failed)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "Row 2: date given is invalid")
	assert.Contains(t, result.Errors[1], "Row 3:")
	assert.Contains(t, result.Errors[1], "non-negative")
	assert.Contains(t, result.Errors[2], "Row 4: no member found for envelope number 999")
	assert.Contains(t, result.Errors[3], "Row 6: date given is required")
	require.Len(t, records.created, 1)
}

func TestGivingImport_EnvelopeGroupCreditsDemographicHead(t *testing.T) {
	tenantID := uuid.New()
	// Martha is older, but Kyle is the oldest male and takes the credit.
	martha := newTestMember(tenantID, 101, "Martha", member.SexFemale, "1950-01-01")
	kyle := newTestMember(tenantID, 101, "Kyle", member.SexMale, "1980-06-15")
	svc, records, _ := newGivingImportFixture(tenantID, []member.Member{martha, kyle}, "Current")

	data := []byte("Date Given,Envelope Number,Current\n1/5/2025,101,50.00\n")

	result, err := svc.ImportCSV(importTestContext(tenantID), data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	require.Len(t, records.created, 1)
	assert.Equal(t, kyle.ID(), records.created[0].MemberID())
}

func TestGivingImport_AllFemaleGroupCreditsOldest(t *testing.T) {
	tenantID := uuid.New()
	martha := newTestMember(tenantID, 101, "Martha", member.SexFemale, "1950-01-01")
	sue := newTestMember(tenantID, 101, "Sue", member.SexFemale, "1960-01-01")
	svc, records, _ := newGivingImportFixture(tenantID, []member.Member{sue, martha}, "Current")

	data := []byte("Date Given,Envelope Number,Current\n1/5/2025,101,50.00\n")

	result, err := svc.ImportCSV(importTestContext(tenantID), data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	require.Len(t, records.created, 1)
	assert.Equal(t, martha.ID(), records.created[0].MemberID())
}

func TestGivingImport_MemberIDColumn(t *testing.T) {
	tenantID := uuid.New()
	alice := newTestMember(tenantID, 101, "Alice", member.SexFemale, "1960-04-02")
	svc, records, _ := newGivingImportFixture(tenantID, []member.Member{alice}, "Current")

	data := []byte("Date Given,Member Id,Current\n" +
		"1/5/2025," + alice.ID().String() + ",40.00\n" +
		"1/5/2025," + uuid.New().String() + ",40.00\n" +
		"1/5/2025,not-a-uuid,40.00\n")

	result, err := svc.ImportCSV(importTestContext(tenantID), data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 2, result.Failed)
	assert.Contains(t, result.Errors[0], "Row 3: member not found")
	assert.Contains(t, result.Errors[1], "Row 4: member id is invalid")

	require.Len(t, records.created, 1)
	rec := records.created[0]
	assert.Equal(t, alice.ID(), rec.MemberID())
	require.NotNil(t, rec.EnvelopeNumber())
	assert.Equal(t, 101, *rec.EnvelopeNumber())
}

func TestGivingImport_EnvelopeTakesPrecedenceOverMemberID(t *testing.T) {
	tenantID := uuid.New()
	head := newTestMember(tenantID, 101, "Head", member.SexMale, "1950-01-01")
	spouse := newTestMember(tenantID, 101, "Spouse", member.SexFemale, "1955-01-01")
	svc, records, _ := newGivingImportFixture(tenantID, []member.Member{head, spouse}, "Current")

	data := []byte("Date Given,Envelope Number,Member Id,Current\n" +
		"1/5/2025,101," + spouse.ID().String() + ",50.00\n")

	result, err := svc.ImportCSV(importTestContext(tenantID), data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	require.Len(t, records.created, 1)
	assert.Equal(t, head.ID(), records.created[0].MemberID())
}

func TestGivingImport_CapturesCheckNumberAndNotes(t *testing.T) {
	tenantID := uuid.New()
	alice := newTestMember(tenantID, 101, "Alice", member.SexFemale, "1960-04-02")
	svc, records, _ := newGivingImportFixture(tenantID, []member.Member{alice}, "Current")

	data := []byte("Date Given,Envelope Number,Current,Check Number,Notes\n" +
		"1/5/2025,101,50.00,1234,year-end gift\n")

	result, err := svc.ImportCSV(importTestContext(tenantID), data)
	require.NoError(t, err)
	require.Equal(t, 1, result.Success)
	require.Len(t, records.created, 1)
	assert.Equal(t, "1234", records.created[0].CheckNumber())
	assert.Equal(t, "year-end gift", records.created[0].Notes())
}

func TestGivingImport_MissingDateColumnIsStructural(t *testing.T) {
	tenantID := uuid.New()
	svc, _, _ := newGivingImportFixture(tenantID, nil, "Current")

	data := []byte("Envelope Number,Current\n101,50.00\n")

	_, err := svc.ImportCSV(importTestContext(tenantID), data)
	var structural *csvimport.StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, "missing required column(s): date given", structural.Message)
}

func TestGivingImport_MissingIdentifierColumnsIsStructural(t *testing.T) {
	tenantID := uuid.New()
	svc, _, _ := newGivingImportFixture(tenantID, nil, "Current")

	data := []byte("Date Given,Current\n1/5/2025,50.00\n")

	_, err := svc.ImportCSV(importTestContext(tenantID), data)
	var structural *csvimport.StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, "missing required column(s): envelope number or member id", structural.Message)
}

func TestGivingImport_HeaderOnlyUploadIsStructural(t *testing.T) {
	tenantID := uuid.New()
	svc, _, _ := newGivingImportFixture(tenantID, nil, "Current")

	_, err := svc.ImportCSV(importTestContext(tenantID), []byte("Date Given,Envelope Number,Current\n"))
	var structural *csvimport.StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, "must have at least a header row and one data row", structural.Message)
}

func TestGivingImport_CommitFailureFailsAllPendingRows(t *testing.T) {
	tenantID := uuid.New()
	alice := newTestMember(tenantID, 101, "Alice", member.SexFemale, "1960-04-02")
	svc, records, publisher := newGivingImportFixture(tenantID, []member.Member{alice}, "Current")
	records.batchErr = errors.New("connection reset")

	data := []byte("Date Given,Envelope Number,Current\n" +
		"1/5/2025,101,50.00\n" +
		"bad-date,101,50.00\n" +
		"1/6/2025,101,25.00\n")

	result, err := svc.ImportCSV(importTestContext(tenantID), data)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Success)
	assert.Equal(t, 3, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Row 3:")
	assert.Contains(t, result.Errors[1], "failed to save giving records")
	assert.Empty(t, publisher.enqueued)
}

func TestGivingImport_AllRowsFailedSkipsCommit(t *testing.T) {
	tenantID := uuid.New()
	svc, records, publisher := newGivingImportFixture(tenantID, nil, "Current")

	data := []byte("Date Given,Envelope Number,Current\n1/5/2025,101,50.00\n")

	result, err := svc.ImportCSV(importTestContext(tenantID), data)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, records.created)
	assert.Empty(t, publisher.enqueued)
}
