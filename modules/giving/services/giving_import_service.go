package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/category"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/giving"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/refdata"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/member"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/csvimport"
	"github.com/dchoinie/church-membership-app-sub003/pkg/metrics"
	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
)

// TopicGivingImportCompleted is published to the import outbox in the
// batch transaction once a giving import commits.
const TopicGivingImportCompleted = "import.giving.completed"

// outboxTable is where the giving pipeline enqueues its events.
var outboxTable = pgx.Identifier{"import_outbox"}

var (
	dateAliases     = []string{"date given", "date", "given date"}
	envelopeAliases = []string{"envelope number", "envelope", "env"}
	memberIDAliases = []string{"member id", "member"}
	checkAliases    = []string{"check number", "check", "check no"}
	notesAliases    = []string{"notes", "note", "memo"}
)

type GivingImportService struct {
	records    giving.Repository
	categories category.Repository
	members    member.Repository
	aliases    *refdata.Aliases
	publisher  outbox.Publisher
}

func NewGivingImportService(
	records giving.Repository,
	categories category.Repository,
	members member.Repository,
	publisher outbox.Publisher,
) *GivingImportService {
	return &GivingImportService{
		records:    records,
		categories: categories,
		members:    members,
		aliases:    refdata.Load(),
		publisher:  publisher,
	}
}

type givingImportCompletedPayload struct {
	Entity  string `json:"entity"`
	Success int    `json:"success"`
	Failed  int    `json:"failed"`
}

// pendingRecord is an accepted row awaiting the batch commit.
type pendingRecord struct {
	line   int
	entity giving.Record
}

// ImportCSV runs the giving import pipeline: decode the upload, resolve
// headers, prefetch the member snapshot and category list, validate row
// by row in file order, then persist every accepted record in a single
// transaction. Structural problems return an error before any row is
// touched; row problems mark that row failed and processing continues.
func (s *GivingImportService) ImportCSV(ctx context.Context, data []byte) (*csvimport.Result, error) {
	started := time.Now()
	logger := composables.UseLogger(ctx)

	table, err := csvimport.Decode(data)
	if err != nil {
		return nil, err
	}

	header := table.Header
	dateIdx, dateOK := header.Index(dateAliases...)
	if !dateOK {
		return nil, csvimport.NewStructuralError("missing required column(s): date given")
	}
	envelopeIdx, envelopeOK := header.Index(envelopeAliases...)
	memberIdx, memberOK := header.Index(memberIDAliases...)
	if !envelopeOK && !memberOK {
		return nil, csvimport.NewStructuralError("missing required column(s): envelope number or member id")
	}

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	// Prefetch everything the row loop needs; no per-row reads remain.
	all, err := s.members.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := member.NewSnapshot(all)

	cats, err := s.categories.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	reserved := make(map[int]struct{}, 5)
	reserved[dateIdx] = struct{}{}
	if envelopeOK {
		reserved[envelopeIdx] = struct{}{}
	}
	if memberOK {
		reserved[memberIdx] = struct{}{}
	}
	if i, ok := header.Index(checkAliases...); ok {
		reserved[i] = struct{}{}
	}
	if i, ok := header.Index(notesAliases...); ok {
		reserved[i] = struct{}{}
	}
	resolver := NewCategoryResolver(header, cats, s.aliases, reserved)

	result := csvimport.NewResult()
	pending := make([]pendingRecord, 0, len(table.Rows))

	for _, row := range table.Rows {
		envelopeRaw := ""
		if envelopeOK {
			envelopeRaw = row.Field(envelopeIdx)
		}
		memberRaw := ""
		if memberOK {
			memberRaw = row.Field(memberIdx)
		}
		if envelopeRaw == "" && memberRaw == "" {
			result.AddRowError(row.Line, "an envelope number or member id is required")
			continue
		}

		givenAt, reason := parseGivenDate(row.Field(dateIdx))
		if reason != "" {
			result.AddRowError(row.Line, reason)
			continue
		}

		items, reason := resolver.ItemsFor(row)
		if reason != "" {
			result.AddRowError(row.Line, reason)
			continue
		}

		// Envelope number takes precedence over member id when both are
		// present. The envelope group elects its head by demographics;
		// an explicit member id credits that member directly.
		recipient, envelope, reason := resolveRecipient(snapshot, envelopeRaw, memberRaw)
		if reason != "" {
			result.AddRowError(row.Line, reason)
			continue
		}

		entity := giving.New(
			tenantID, recipient.ID(), givenAt, items,
			giving.WithID(uuid.New()),
			giving.WithEnvelopeNumber(envelope),
			giving.WithCheckNumber(csvimport.Sanitize(header.Value(row, checkAliases...))),
			giving.WithNotes(csvimport.Sanitize(header.Value(row, notesAliases...))),
		)
		pending = append(pending, pendingRecord{line: row.Line, entity: entity})
	}

	m := metrics.Imports()
	if len(pending) == 0 {
		m.BatchesTotal.WithLabelValues("giving", "empty").Inc()
		m.RowsTotal.WithLabelValues("giving", "failed").Add(float64(result.Failed))
		m.Duration.WithLabelValues("giving").Observe(time.Since(started).Seconds())
		return result, nil
	}

	entities := make([]giving.Record, 0, len(pending))
	for _, p := range pending {
		entities = append(entities, p.entity)
	}

	commitErr := composables.InTenantTx(ctx, func(txCtx context.Context) error {
		if _, err := s.records.CreateBatch(txCtx, entities); err != nil {
			return err
		}

		payload, err := json.Marshal(givingImportCompletedPayload{
			Entity:  "giving",
			Success: len(entities),
			Failed:  result.Failed,
		})
		if err != nil {
			return err
		}
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		_, err = s.publisher.Enqueue(txCtx, tx, outboxTable, outbox.Message{
			TenantID: tenantID,
			Topic:    TopicGivingImportCompleted,
			EventID:  uuid.New(),
			Payload:  payload,
		})
		return err
	})
	if commitErr != nil {
		logger.WithError(commitErr).Error("giving import: batch commit failed")
		result.MarkBatchFailed(len(pending), fmt.Sprintf("failed to save giving records: %v", commitErr))
		m.BatchesTotal.WithLabelValues("giving", "failed").Inc()
	} else {
		result.MarkCommitted(len(pending))
		m.BatchesTotal.WithLabelValues("giving", "committed").Inc()
	}

	m.RowsTotal.WithLabelValues("giving", "success").Add(float64(result.Success))
	m.RowsTotal.WithLabelValues("giving", "failed").Add(float64(result.Failed))
	m.Duration.WithLabelValues("giving").Observe(time.Since(started).Seconds())

	entry := logger.WithField("success", result.Success).
		WithField("failed", result.Failed)
	if params, ok := composables.UseParams(ctx); ok && params.IP != "" {
		entry = entry.WithField("client_ip", params.IP)
	}
	entry.Info("giving import finished")

	return result, nil
}

// resolveRecipient turns a row's identifier into the member the record
// is attributed to. Reads only the snapshot, never the database.
func resolveRecipient(snapshot *member.Snapshot, envelopeRaw, memberRaw string) (member.Member, *int, string) {
	if envelopeRaw != "" {
		n, reason := parseEnvelopeNumber(envelopeRaw)
		if reason != "" {
			return member.Member{}, nil, reason
		}
		group := snapshot.ByEnvelope(n)
		if len(group) == 0 {
			return member.Member{}, nil, fmt.Sprintf("no member found for envelope number %d", n)
		}
		head, _ := member.HeadByDemographics(group)
		return head, &n, ""
	}

	id, err := uuid.Parse(memberRaw)
	if err != nil {
		return member.Member{}, nil, "member id is invalid"
	}
	recipient, ok := snapshot.ByID(id)
	if !ok {
		return member.Member{}, nil, "member not found"
	}
	return recipient, recipient.EnvelopeNumber(), ""
}

func parseEnvelopeNumber(raw string) (int, string) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, "envelope number must be a whole number"
	}
	if n < 0 {
		return 0, "envelope number must be non-negative"
	}
	return n, ""
}

func parseGivenDate(raw string) (time.Time, string) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, "date given is required"
	}
	t, err := csvimport.ParseDate(raw)
	if err != nil {
		return time.Time{}, "date given is invalid"
	}
	return t, ""
}
