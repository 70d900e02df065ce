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

	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/household"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/member"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/refdata"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/csvimport"
	"github.com/dchoinie/church-membership-app-sub003/pkg/metrics"
	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
)

// TopicMemberImportCompleted is published to the import outbox in the
// batch transaction once a member import commits.
const TopicMemberImportCompleted = "import.members.completed"

// OutboxTable is where both import pipelines enqueue their events.
var OutboxTable = pgx.Identifier{"import_outbox"}

var (
	firstNameAliases = []string{"first name", "first", "given name"}
	lastNameAliases  = []string{"last name", "last", "surname", "family name"}
	middleAliases    = []string{"middle name", "middle"}
	emailAliases     = []string{"email", "email address", "e-mail"}
	envelopeAliases  = []string{"envelope number", "envelope", "env"}
	sexAliases       = []string{"sex", "gender"}
	dobAliases       = []string{"date of birth", "dob", "birth date", "birthdate"}
	sequenceAliases  = []string{"sequence", "relationship", "role"}
	partAliases      = []string{"participation", "participation status", "member status"}
	receivedByAlias  = []string{"received by", "how received"}
	receivedDtAlias  = []string{"received date", "date received"}
	removedByAlias   = []string{"removed by", "how removed"}
	removedDtAlias   = []string{"removed date", "date removed"}
	groupAliases     = []string{"household group", "family group", "group"}
	newHouseAliases  = []string{"new household", "create new household", "newhousehold"}
)

type MemberImportService struct {
	members    member.Repository
	households household.Repository
	enums      *refdata.Registry
	publisher  outbox.Publisher
}

func NewMemberImportService(
	members member.Repository,
	households household.Repository,
	publisher outbox.Publisher,
) *MemberImportService {
	return &MemberImportService{
		members:    members,
		households: households,
		enums:      refdata.Load(),
		publisher:  publisher,
	}
}

type memberImportCompletedPayload struct {
	Entity  string `json:"entity"`
	Success int    `json:"success"`
	Failed  int    `json:"failed"`
}

// pendingMember is an accepted row awaiting the batch commit.
type pendingMember struct {
	line   int
	entity member.Member
}

// ImportCSV runs the full member import pipeline: decode, resolve
// headers, prefetch lookups, validate row by row, then commit every
// accepted member in one transaction. Structural problems return an
// error; row problems only mark rows failed in the result.
func (s *MemberImportService) ImportCSV(ctx context.Context, data []byte) (*csvimport.Result, error) {
	started := time.Now()
	logger := composables.UseLogger(ctx)

	table, err := csvimport.Decode(data)
	if err != nil {
		return nil, err
	}

	header := table.Header
	firstIdx, firstOK := header.Index(firstNameAliases...)
	lastIdx, lastOK := header.Index(lastNameAliases...)
	if !firstOK || !lastOK {
		missing := make([]string, 0, 2)
		if !firstOK {
			missing = append(missing, "first name")
		}
		if !lastOK {
			missing = append(missing, "last name")
		}
		return nil, csvimport.NewStructuralError("missing required column(s): %s", strings.Join(missing, ", "))
	}

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	existingEmails, err := s.members.EmailsInUse(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.members.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := member.NewSnapshot(all)

	result := csvimport.NewResult()
	pending := make([]pendingMember, 0, len(table.Rows))

	// Per-invocation state: household group tokens and in-file envelope
	// numbers both resolve to the household the first row created.
	groupHouseholds := make(map[string]uuid.UUID)
	envelopeHouseholds := make(map[int]uuid.UUID)
	fileEmails := make(map[string]struct{})
	createdByHousehold := make(map[uuid.UUID][]member.Member)

	for _, row := range table.Rows {
		firstName := csvimport.Sanitize(row.Field(firstIdx))
		lastName := csvimport.Sanitize(row.Field(lastIdx))
		if firstName == "" {
			result.AddRowError(row.Line, "first name is required")
			continue
		}
		if lastName == "" {
			result.AddRowError(row.Line, "last name is required")
			continue
		}

		envelope, reason := parseEnvelope(header.Value(row, envelopeAliases...))
		if reason != "" {
			result.AddRowError(row.Line, reason)
			continue
		}

		dob, reason := parseDateCell(header.Value(row, dobAliases...), "date of birth")
		if reason != "" {
			result.AddRowError(row.Line, reason)
			continue
		}
		receivedDate, reason := parseDateCell(header.Value(row, receivedDtAlias...), "received date")
		if reason != "" {
			result.AddRowError(row.Line, reason)
			continue
		}
		removedDate, reason := parseDateCell(header.Value(row, removedDtAlias...), "removed date")
		if reason != "" {
			result.AddRowError(row.Line, reason)
			continue
		}

		sex, reason := s.parseEnumCell(refdata.KindSex, header.Value(row, sexAliases...), "sex")
		if reason != "" {
			result.AddRowError(row.Line, reason)
			continue
		}
		sequence, reason := s.parseEnumCell(refdata.KindSequence, header.Value(row, sequenceAliases...), "sequence")
		if reason != "" {
			result.AddRowError(row.Line, reason)
			continue
		}
		participation, reason := s.parseEnumCell(refdata.KindParticipation, header.Value(row, partAliases...), "participation")
		if reason != "" {
			result.AddRowError(row.Line, reason)
			continue
		}
		receivedBy, reason := s.parseEnumCell(refdata.KindReceivedBy, header.Value(row, receivedByAlias...), "received by")
		if reason != "" {
			result.AddRowError(row.Line, reason)
			continue
		}
		removedBy, reason := s.parseEnumCell(refdata.KindRemovedBy, header.Value(row, removedByAlias...), "removed by")
		if reason != "" {
			result.AddRowError(row.Line, reason)
			continue
		}

		email := strings.ToLower(strings.TrimSpace(header.Value(row, emailAliases...)))
		if email != "" {
			if _, taken := existingEmails[email]; taken {
				result.AddRowError(row.Line, "email already exists")
				continue
			}
			if _, taken := fileEmails[email]; taken {
				result.AddRowError(row.Line, "email already exists")
				continue
			}
		}

		groupToken := header.Value(row, groupAliases...)
		forceNew := isTruthy(header.Value(row, newHouseAliases...))
		householdID, err := s.resolveImportHousehold(
			ctx, tenantID, snapshot,
			groupHouseholds, envelopeHouseholds,
			groupToken, envelope, forceNew, lastName,
		)
		if err != nil {
			logger.WithError(err).Warn("member import: household resolution failed")
			result.AddRowError(row.Line, "could not create household")
			continue
		}

		entity := member.New(
			tenantID, householdID, firstName, lastName,
			member.WithID(uuid.New()),
			member.WithEnvelopeNumber(envelope),
			member.WithMiddleName(csvimport.Sanitize(header.Value(row, middleAliases...))),
			member.WithEmail(email),
			member.WithSex(member.Sex(sex)),
			member.WithDateOfBirth(dob),
			member.WithSequence(member.Sequence(sequence)),
			member.WithParticipation(member.Participation(participation)),
			member.WithReceived(receivedBy, receivedDate),
			member.WithRemoved(removedBy, removedDate),
		)

		pending = append(pending, pendingMember{line: row.Line, entity: entity})
		createdByHousehold[householdID] = append(createdByHousehold[householdID], entity)
		if email != "" {
			fileEmails[email] = struct{}{}
		}
	}

	m := metrics.Imports()
	if len(pending) == 0 {
		m.BatchesTotal.WithLabelValues("members", "empty").Inc()
		m.RowsTotal.WithLabelValues("members", "failed").Add(float64(result.Failed))
		m.Duration.WithLabelValues("members").Observe(time.Since(started).Seconds())
		return result, nil
	}

	entities := make([]member.Member, 0, len(pending))
	affected := make([]uuid.UUID, 0, len(createdByHousehold))
	seen := make(map[uuid.UUID]struct{}, len(createdByHousehold))
	for _, p := range pending {
		entities = append(entities, p.entity)
		if _, ok := seen[p.entity.HouseholdID()]; !ok {
			seen[p.entity.HouseholdID()] = struct{}{}
			affected = append(affected, p.entity.HouseholdID())
		}
	}

	commitErr := composables.InTenantTx(ctx, func(txCtx context.Context) error {
		if _, err := s.members.CreateBatch(txCtx, entities); err != nil {
			return err
		}

		// Head of household follows the sequence policy, recomputed for
		// every household this import touched, inside the same
		// transaction as the batch.
		for _, hid := range affected {
			group := append(snapshot.ByHousehold(hid), createdByHousehold[hid]...)
			head, ok := member.HeadBySequence(group)
			if !ok {
				continue
			}
			headID := head.ID()
			if err := s.households.SetHead(txCtx, hid, &headID); err != nil {
				return err
			}
		}

		payload, err := json.Marshal(memberImportCompletedPayload{
			Entity:  "members",
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
		_, err = s.publisher.Enqueue(txCtx, tx, OutboxTable, outbox.Message{
			TenantID: tenantID,
			Topic:    TopicMemberImportCompleted,
			EventID:  uuid.New(),
			Payload:  payload,
		})
		return err
	})
	if commitErr != nil {
		logger.WithError(commitErr).Error("member import: batch commit failed")
		result.MarkBatchFailed(len(pending), fmt.Sprintf("failed to save imported members: %v", commitErr))
		m.BatchesTotal.WithLabelValues("members", "failed").Inc()
	} else {
		result.MarkCommitted(len(pending))
		m.BatchesTotal.WithLabelValues("members", "committed").Inc()
	}

	m.RowsTotal.WithLabelValues("members", "success").Add(float64(result.Success))
	m.RowsTotal.WithLabelValues("members", "failed").Add(float64(result.Failed))
	m.Duration.WithLabelValues("members").Observe(time.Since(started).Seconds())

	entry := logger.WithField("success", result.Success).
		WithField("failed", result.Failed)
	// Uploads through HTTP carry the caller identity; CLI imports don't.
	if params, ok := composables.UseParams(ctx); ok && params.IP != "" {
		entry = entry.WithField("client_ip", params.IP)
	}
	entry.Info("member import finished")

	return result, nil
}

// resolveImportHousehold decides which household a row's member joins.
// Group tokens win, then envelope numbers (first in-file, then the
// tenant snapshot), and a row with neither gets its own household.
func (s *MemberImportService) resolveImportHousehold(
	ctx context.Context,
	tenantID uuid.UUID,
	snapshot *member.Snapshot,
	groupHouseholds map[string]uuid.UUID,
	envelopeHouseholds map[int]uuid.UUID,
	groupToken string,
	envelope *int,
	forceNew bool,
	lastName string,
) (uuid.UUID, error) {
	if groupToken != "" {
		if id, ok := groupHouseholds[groupToken]; ok {
			return id, nil
		}
	}

	var householdID uuid.UUID
	if !forceNew && envelope != nil {
		if id, ok := envelopeHouseholds[*envelope]; ok {
			householdID = id
		} else if existing := snapshot.ByEnvelope(*envelope); len(existing) > 0 {
			householdID = existing[0].HouseholdID()
		}
	}

	if householdID == uuid.Nil {
		created, err := s.households.Create(ctx, household.New(tenantID, householdName(lastName)))
		if err != nil {
			return uuid.Nil, err
		}
		householdID = created.ID()
	}

	if groupToken != "" {
		groupHouseholds[groupToken] = householdID
	}
	if envelope != nil {
		if _, ok := envelopeHouseholds[*envelope]; !ok {
			envelopeHouseholds[*envelope] = householdID
		}
	}
	return householdID, nil
}

func (s *MemberImportService) parseEnumCell(kind, raw, field string) (string, string) {
	if strings.TrimSpace(raw) == "" {
		return "", ""
	}
	canonical, ok := s.enums.Canonical(kind, raw)
	if !ok {
		return "", fmt.Sprintf("invalid %s value", field)
	}
	return canonical, ""
}

func parseEnvelope(raw string) (*int, string) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if raw == "" {
		return nil, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, "envelope number must be a whole number"
	}
	if n < 0 {
		return nil, "envelope number must be non-negative"
	}
	return &n, ""
}

func parseDateCell(raw, field string) (*time.Time, string) {
	if strings.TrimSpace(raw) == "" {
		return nil, ""
	}
	t, err := csvimport.ParseDate(raw)
	if err != nil {
		return nil, fmt.Sprintf("%s is invalid", field)
	}
	return &t, ""
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes", "true", "1", "x":
		return true
	default:
		return false
	}
}
