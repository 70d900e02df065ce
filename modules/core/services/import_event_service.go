package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/dchoinie/church-membership-app-sub003/modules/core/domain/entities/importevent"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
)

// ImportEventService turns relayed import.*.completed events into
// import_history rows and serves them back to the API.
type ImportEventService struct {
	repo importevent.Repository
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewImportEventService(repo importevent.Repository, pool *pgxpool.Pool, log *logrus.Logger) *ImportEventService {
	return &ImportEventService{repo: repo, pool: pool, log: log}
}

func (s *ImportEventService) List(ctx context.Context, limit int) ([]*importevent.ImportEvent, error) {
	return s.repo.List(ctx, limit)
}

type importCompletedPayload struct {
	Entity  string `json:"entity"`
	Success int    `json:"success"`
	Failed  int    `json:"failed"`
}

// HandleOutboxEvent is the bus subscriber behind the outbox relay. It
// runs outside any request, so it builds its own tenant context from
// the event metadata.
func (s *ImportEventService) HandleOutboxEvent(meta *outbox.Meta, topic string, payload json.RawMessage) error {
	ctx := composables.WithTenantID(composables.WithPool(context.Background(), s.pool), meta.TenantID)
	return s.RecordDelivered(ctx, meta, topic, payload)
}

// RecordDelivered records one delivered event in the caller's tenant
// context. An error makes the relay redeliver; the unique event id on
// import_history keeps redelivery harmless.
func (s *ImportEventService) RecordDelivered(ctx context.Context, meta *outbox.Meta, topic string, payload json.RawMessage) error {
	ev, ok, err := parseImportEvent(meta, topic, payload)
	if err != nil {
		return err
	}
	if !ok {
		s.log.WithField("topic", topic).Warn("import events: ignoring unrecognized topic")
		return nil
	}

	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		recorded, err := s.repo.Record(txCtx, ev)
		if err != nil {
			return err
		}

		entry := s.log.WithFields(logrus.Fields{
			"tenant_id": meta.TenantID.String(),
			"event_id":  meta.EventID.String(),
			"entity":    ev.Entity(),
		})
		if !recorded {
			entry.Debug("import events: duplicate delivery skipped")
			return nil
		}
		entry.WithFields(logrus.Fields{
			"success": ev.SuccessCount(),
			"failed":  ev.FailedCount(),
		}).Info("import events: batch recorded")
		return nil
	})
}

// parseImportEvent decodes an import.<entity>.completed event. ok is
// false for topics this consumer does not understand.
func parseImportEvent(meta *outbox.Meta, topic string, payload json.RawMessage) (*importevent.ImportEvent, bool, error) {
	if !strings.HasPrefix(topic, "import.") || !strings.HasSuffix(topic, ".completed") {
		return nil, false, nil
	}

	var p importCompletedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, false, errors.Wrap(err, "failed to decode import event payload")
	}

	entity := p.Entity
	if entity == "" {
		entity = strings.TrimSuffix(strings.TrimPrefix(topic, "import."), ".completed")
	}
	return importevent.New(entity, meta.EventID, p.Success, p.Failed), true, nil
}
