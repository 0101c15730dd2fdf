package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"example.com/woodtrack/services/production/internal/metrics"
	"example.com/woodtrack/services/production/internal/models"
)

// Group errors
var (
	ErrGroupTooSmall  = errors.New("a group needs at least two lines")
	ErrAlreadyGrouped = errors.New("line already belongs to a group")
)

// GroupService creates and dissolves delivery groups. A group is identified by
// its code, a timestamp minted at creation; members adopt the status and
// delivery date of the first selected line and keep the rest of their payload.
type GroupService struct {
	lines   LineStore
	groups  GroupStore
	metrics *metrics.Metrics
}

// NewGroupService creates a group service
func NewGroupService(lines LineStore, groups GroupStore, m *metrics.Metrics) *GroupService {
	return &GroupService{lines: lines, groups: groups, metrics: m}
}

// CreateGroup forms a new group from the given lines, in selection order. All
// lines must be ungrouped. Returns the new group code.
func (s *GroupService) CreateGroup(ctx context.Context, lineIDs []uuid.UUID) (string, error) {
	if len(lineIDs) < 2 {
		return "", ErrGroupTooSmall
	}

	members := make([]*models.OrderLine, 0, len(lineIDs))
	for _, id := range lineIDs {
		line, err := s.lines.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		if line.Grouped() {
			return "", errors.Wrapf(ErrAlreadyGrouped, "line %s", id)
		}
		members = append(members, line)
	}

	// The first selected line is the template: its status and delivery date
	// become the group's.
	first := members[0]
	code := time.Now().UTC().Format(time.RFC3339Nano)

	g, gctx := errgroup.WithContext(ctx)
	for _, member := range members {
		member := member
		g.Go(func() error {
			payload := member.Payload
			payload.DeliveryDate = first.Payload.DeliveryDate
			return s.lines.Update(gctx, member.ID, map[string]interface{}{
				"group_code": code,
				"status":     first.Status,
				"payload":    payload,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return "", errors.Wrap(err, "failed to create group")
	}

	s.metrics.Inc(metrics.CounterGroupsCreated)
	log.Info().Str("group_code", code).Int("members", len(members)).Msg("group created")
	return code, nil
}

// DissolveGroup clears the group code from every member. Members keep their
// current status and payload.
func (s *GroupService) DissolveGroup(ctx context.Context, code string) error {
	if err := s.groups.Dissolve(ctx, code); err != nil {
		return err
	}
	s.metrics.Inc(metrics.CounterGroupsDissolved)
	log.Info().Str("group_code", code).Msg("group dissolved")
	return nil
}

// UpdateDeliveryDate sets the planned delivery date on every member of a group
func (s *GroupService) UpdateDeliveryDate(ctx context.Context, code, date string) error {
	return s.groups.ApplyToGroup(ctx, code, func(member models.OrderLine) map[string]interface{} {
		payload := member.Payload
		payload.DeliveryDate = date
		return map[string]interface{}{"payload": payload}
	})
}

// Reconcile realigns diverged groups. A group can diverge when a mutation
// applied to only part of its members; the member with the smallest id is
// taken as the reference and the rest are brought to its status and delivery
// date. Completed members are left untouched. Returns the number of repaired
// groups.
func (s *GroupService) Reconcile(ctx context.Context) (int, error) {
	lines, err := s.lines.ListByStatuses(ctx,
		models.StatusProduction,
		models.StatusDelivery,
		models.StatusReadyForDelivery,
		models.StatusDocumented,
	)
	if err != nil {
		return 0, err
	}

	byCode := make(map[string][]models.OrderLine)
	for _, line := range lines {
		if line.Grouped() {
			byCode[*line.GroupCode] = append(byCode[*line.GroupCode], line)
		}
	}

	repaired := 0
	for code, members := range byCode {
		sort.Slice(members, func(i, j int) bool {
			return members[i].ID.String() < members[j].ID.String()
		})
		ref := members[0]

		diverged := false
		for _, member := range members[1:] {
			if member.Status != ref.Status || member.Payload.DeliveryDate != ref.Payload.DeliveryDate {
				diverged = true
				break
			}
		}
		if !diverged {
			continue
		}

		log.Warn().Str("group_code", code).Msg("group diverged, realigning")
		err := s.groups.ApplyToGroup(ctx, code, func(member models.OrderLine) map[string]interface{} {
			// Completed members are done; realigning them would move the
			// machine backwards.
			if member.Status == models.StatusCompleted {
				return nil
			}
			if member.Status == ref.Status && member.Payload.DeliveryDate == ref.Payload.DeliveryDate {
				return nil
			}
			payload := member.Payload
			payload.DeliveryDate = ref.Payload.DeliveryDate
			return map[string]interface{}{
				"status":  ref.Status,
				"payload": payload,
			}
		})
		if err != nil {
			log.Error().Err(err).Str("group_code", code).Msg("failed to realign group")
			continue
		}
		repaired++
		s.metrics.Inc(metrics.CounterReconcileRepairs)
	}

	return repaired, nil
}
