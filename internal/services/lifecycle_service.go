package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/woodtrack/services/production/internal/identity"
	"example.com/woodtrack/services/production/internal/messaging"
	"example.com/woodtrack/services/production/internal/metrics"
	"example.com/woodtrack/services/production/internal/models"
	"example.com/woodtrack/services/production/internal/repositories"
)

// Service-level sentinel errors
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoDeliveries      = errors.New("line has no recorded deliveries")
	ErrEventNotFound     = errors.New("delivery event not found")
)

// LineStore is the slice of the order line repository the services need
type LineStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.OrderLine, error)
	ListByStatuses(ctx context.Context, statuses ...models.Status) ([]models.OrderLine, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// GroupStore is the slice of the group repository the services need
type GroupStore interface {
	MembersOf(ctx context.Context, code string) ([]models.OrderLine, error)
	ApplyToGroup(ctx context.Context, code string, mutate func(line models.OrderLine) map[string]interface{}) error
	Dissolve(ctx context.Context, code string) error
}

// CompletedIndexer indexes completed lines for the fulfillment history
type CompletedIndexer interface {
	IndexCompletedLine(ctx context.Context, line *models.OrderLine) error
}

// LifecycleService moves order lines through the fulfillment lifecycle. Every
// status change on a grouped line is applied to the whole group; the
// precondition for a transition is always evaluated on the triggering line.
type LifecycleService struct {
	lines     LineStore
	groups    GroupStore
	publisher messaging.Publisher
	indexer   CompletedIndexer
	metrics   *metrics.Metrics
}

// NewLifecycleService creates a lifecycle service. indexer may be nil when no
// search backend is configured.
func NewLifecycleService(
	lines LineStore,
	groups GroupStore,
	publisher messaging.Publisher,
	indexer CompletedIndexer,
	m *metrics.Metrics,
) *LifecycleService {
	return &LifecycleService{
		lines:     lines,
		groups:    groups,
		publisher: publisher,
		indexer:   indexer,
		metrics:   m,
	}
}

// Transition moves a line (and its whole group, when grouped) to a new status.
// Moving to documented requires at least one recorded delivery on the
// triggering line. Moving to completed stamps each affected line.
func (s *LifecycleService) Transition(ctx context.Context, lineID uuid.UUID, to models.Status, actor identity.Actor) error {
	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		return err
	}

	if !models.CanTransition(line.Status, to) {
		return errors.Wrapf(ErrInvalidTransition, "%s to %s", line.Status, to)
	}
	if to == models.StatusDocumented && len(line.Payload.Deliveries) == 0 {
		return ErrNoDeliveries
	}

	now := time.Now()
	stamped := to == models.StatusDocumented || to == models.StatusCompleted
	mutate := func(member models.OrderLine) map[string]interface{} {
		fields := map[string]interface{}{"status": to}
		if stamped {
			payload := member.Payload
			payload.CompletedAt = &models.Stamp{Timestamp: now, User: actor.Label()}
			fields["payload"] = payload
		}
		return fields
	}

	var affected []models.OrderLine
	if line.Grouped() {
		code := *line.GroupCode
		members, err := s.groups.MembersOf(ctx, code)
		if err != nil {
			return err
		}
		if err := s.groups.ApplyToGroup(ctx, code, mutate); err != nil {
			var pae *repositories.PartialApplyError
			if errors.As(err, &pae) {
				s.metrics.Inc(metrics.CounterPartialApplies)
				affected = withoutFailed(members, pae.FailedIDs)
				s.publishTransitions(ctx, affected, line.Status, to, actor, now)
			}
			return err
		}
		affected = members
	} else {
		if err := s.lines.Update(ctx, lineID, mutate(*line)); err != nil {
			return err
		}
		affected = []models.OrderLine{*line}
	}

	s.metrics.Inc(metrics.CounterTransitions)
	s.publishTransitions(ctx, affected, line.Status, to, actor, now)

	if to == models.StatusCompleted && s.indexer != nil {
		for _, member := range affected {
			member.Status = to
			member.Payload.CompletedAt = &models.Stamp{Timestamp: now, User: actor.Label()}
			if err := s.indexer.IndexCompletedLine(ctx, &member); err != nil {
				log.Error().Err(err).Str("line_id", member.ID.String()).Msg("failed to index completed line")
			}
		}
	}

	return nil
}

func withoutFailed(members []models.OrderLine, failed []uuid.UUID) []models.OrderLine {
	failedSet := make(map[uuid.UUID]bool, len(failed))
	for _, id := range failed {
		failedSet[id] = true
	}
	var ok []models.OrderLine
	for _, m := range members {
		if !failedSet[m.ID] {
			ok = append(ok, m)
		}
	}
	return ok
}

func (s *LifecycleService) publishTransitions(ctx context.Context, lines []models.OrderLine, from, to models.Status, actor identity.Actor, at time.Time) {
	for _, line := range lines {
		event := messaging.TransitionEvent{
			LineID: line.ID.String(),
			From:   string(from),
			To:     string(to),
			Actor:  actor.Label(),
			Time:   at,
		}
		if line.GroupCode != nil {
			event.GroupCode = *line.GroupCode
		}
		if err := s.publisher.PublishTransition(ctx, event); err != nil {
			log.Error().Err(err).Str("line_id", line.ID.String()).Msg("failed to publish transition event")
		}
	}
}

// ConfirmProduction moves a line from production to delivery and stamps it with
// the confirming user. The stamp is per line even for grouped lines.
func (s *LifecycleService) ConfirmProduction(ctx context.Context, lineID uuid.UUID, actor identity.Actor) error {
	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		return err
	}
	if line.Status != models.StatusProduction {
		return errors.Wrapf(ErrInvalidTransition, "%s to %s", line.Status, models.StatusDelivery)
	}

	now := time.Now()
	payload := line.Payload
	payload.ProductionConfirmedAt = &models.Stamp{Timestamp: now, User: actor.Label()}
	err = s.lines.Update(ctx, lineID, map[string]interface{}{
		"status":  models.StatusDelivery,
		"payload": payload,
	})
	if err != nil {
		return err
	}

	s.metrics.Inc(metrics.CounterTransitions)
	s.publishTransitions(ctx, []models.OrderLine{*line}, models.StatusProduction, models.StatusDelivery, actor, now)
	return nil
}

// ToggleReady flips a line between delivery and ready_for_delivery, group-wide
// when grouped.
func (s *LifecycleService) ToggleReady(ctx context.Context, lineID uuid.UUID, actor identity.Actor) error {
	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		return err
	}

	var to models.Status
	switch line.Status {
	case models.StatusDelivery:
		to = models.StatusReadyForDelivery
	case models.StatusReadyForDelivery:
		to = models.StatusDelivery
	default:
		return errors.Wrapf(ErrInvalidTransition, "cannot toggle readiness from %s", line.Status)
	}
	return s.Transition(ctx, lineID, to, actor)
}

// Dispatch moves a line into documented once the transport document is issued.
func (s *LifecycleService) Dispatch(ctx context.Context, lineID uuid.UUID, actor identity.Actor) error {
	return s.Transition(ctx, lineID, models.StatusDocumented, actor)
}

// Complete closes out a documented line.
func (s *LifecycleService) Complete(ctx context.Context, lineID uuid.UUID, actor identity.Actor) error {
	return s.Transition(ctx, lineID, models.StatusCompleted, actor)
}

// DeleteLine removes a line on explicit user request, regardless of its
// status. Unlike an upstream withdrawal this is not limited to production.
func (s *LifecycleService) DeleteLine(ctx context.Context, lineID uuid.UUID, actor identity.Actor) error {
	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		return err
	}
	if err := s.lines.Delete(ctx, lineID); err != nil {
		return err
	}

	log.Info().
		Str("line_id", lineID.String()).
		Str("status", string(line.Status)).
		Str("user", actor.Label()).
		Msg("line deleted")
	return nil
}

// UpdateDeliveryDate sets the planned delivery date, propagating to the whole
// group when the line is grouped. Other payload fields stay per line.
func (s *LifecycleService) UpdateDeliveryDate(ctx context.Context, lineID uuid.UUID, date string) error {
	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		return err
	}

	if line.Grouped() {
		return s.groups.ApplyToGroup(ctx, *line.GroupCode, func(member models.OrderLine) map[string]interface{} {
			payload := member.Payload
			payload.DeliveryDate = date
			return map[string]interface{}{"payload": payload}
		})
	}

	payload := line.Payload
	payload.DeliveryDate = date
	return s.lines.Update(ctx, lineID, map[string]interface{}{"payload": payload})
}

// SetNote replaces the free-form note of one line
func (s *LifecycleService) SetNote(ctx context.Context, lineID uuid.UUID, note string) error {
	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		return err
	}

	payload := line.Payload
	payload.Note = note
	return s.lines.Update(ctx, lineID, map[string]interface{}{"payload": payload})
}

// AddDeliveryEvent appends a delivery to the line's ledger. The ledger is
// per line and is never shared across a group.
func (s *LifecycleService) AddDeliveryEvent(ctx context.Context, lineID uuid.UUID, event models.DeliveryEvent) error {
	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		return err
	}

	payload := line.Payload
	payload.Deliveries = append(payload.Deliveries, event)
	return s.lines.Update(ctx, lineID, map[string]interface{}{"payload": payload})
}

// RemoveDeliveryEvent removes the delivery at the given position in the ledger
func (s *LifecycleService) RemoveDeliveryEvent(ctx context.Context, lineID uuid.UUID, index int) error {
	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		return err
	}

	payload := line.Payload
	if index < 0 || index >= len(payload.Deliveries) {
		return ErrEventNotFound
	}
	payload.Deliveries = append(payload.Deliveries[:index], payload.Deliveries[index+1:]...)
	return s.lines.Update(ctx, lineID, map[string]interface{}{"payload": payload})
}

// ListView returns the lines in the given statuses in display order: grouped
// lines first, groups ordered by their reference member's delivery date and
// flattened, then ungrouped lines by ascending delivery date. Lines with an
// incomplete payload are dropped.
func (s *LifecycleService) ListView(ctx context.Context, statuses ...models.Status) ([]models.OrderLine, error) {
	lines, err := s.lines.ListByStatuses(ctx, statuses...)
	if err != nil {
		return nil, err
	}

	var grouped, ungrouped []models.OrderLine
	for _, line := range lines {
		if !line.Payload.Complete() {
			continue
		}
		if line.Grouped() {
			grouped = append(grouped, line)
		} else {
			ungrouped = append(ungrouped, line)
		}
	}

	byCode := make(map[string][]models.OrderLine)
	for _, line := range grouped {
		byCode[*line.GroupCode] = append(byCode[*line.GroupCode], line)
	}

	codes := make([]string, 0, len(byCode))
	for code, members := range byCode {
		sort.Slice(members, func(i, j int) bool {
			return members[i].ID.String() < members[j].ID.String()
		})
		byCode[code] = members
		codes = append(codes, code)
	}
	// Groups are ordered by the delivery date of their reference member, the
	// member with the smallest id.
	sort.Slice(codes, func(i, j int) bool {
		a := byCode[codes[i]][0].Payload.DeliveryDate
		b := byCode[codes[j]][0].Payload.DeliveryDate
		if a != b {
			return a < b
		}
		return codes[i] < codes[j]
	})

	sort.Slice(ungrouped, func(i, j int) bool {
		a, b := ungrouped[i], ungrouped[j]
		if a.Payload.DeliveryDate != b.Payload.DeliveryDate {
			return a.Payload.DeliveryDate < b.Payload.DeliveryDate
		}
		return a.ID.String() < b.ID.String()
	})

	out := make([]models.OrderLine, 0, len(grouped)+len(ungrouped))
	for _, code := range codes {
		out = append(out, byCode[code]...)
	}
	out = append(out, ungrouped...)
	return out, nil
}
