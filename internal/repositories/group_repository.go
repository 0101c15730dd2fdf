package repositories

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"example.com/woodtrack/services/production/internal/models"
)

// PartialApplyError reports a group mutation that succeeded for some members
// and failed for others. Writes already applied are not rolled back; the
// reconciliation job is the repair path.
type PartialApplyError struct {
	GroupCode string
	FailedIDs []uuid.UUID
	Causes    []error
}

func (e *PartialApplyError) Error() string {
	ids := make([]string, 0, len(e.FailedIDs))
	for _, id := range e.FailedIDs {
		ids = append(ids, id.String())
	}
	return fmt.Sprintf("group %s partially applied, failed members: %s", e.GroupCode, strings.Join(ids, ", "))
}

// IsPartialApply reports whether err wraps a PartialApplyError.
func IsPartialApply(err error) bool {
	var pae *PartialApplyError
	return errors.As(err, &pae)
}

// GroupRepository treats the set of order lines sharing a group code as one
// aggregate. Membership is always re-read from the store, never cached, and
// every group mutation funnels through ApplyToGroup so the
// all-or-report-partial semantics live in one place.
type GroupRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewGroupRepository creates a new repository
func NewGroupRepository(db *gorm.DB, readOnlyDB *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db, readOnlyDB: readOnlyDB}
}

// MembersOf returns the current members of a group, fresh from the store.
func (r *GroupRepository) MembersOf(ctx context.Context, code string) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Order").
		Preload("Order.Client").
		Preload("Product").
		Where("group_code = ?", code).
		Find(&lines).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load group members")
	}
	return lines, nil
}

// ApplyToGroup re-reads the group's membership and applies the mutation to
// every current member as independent concurrent writes. There is no
// transaction wrapping and no rollback: if some member writes fail the rest
// stand, and the result is a PartialApplyError naming the failed members.
func (r *GroupRepository) ApplyToGroup(ctx context.Context, code string, mutate func(line models.OrderLine) map[string]interface{}) error {
	members, err := r.MembersOf(ctx, code)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return errors.Errorf("group %s has no members", code)
	}

	var (
		mu      sync.Mutex
		failed  []uuid.UUID
		causes  []error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, member := range members {
		member := member
		g.Go(func() error {
			fields := mutate(member)
			if len(fields) == 0 {
				return nil
			}
			result := r.db.WithContext(gctx).
				Model(&models.OrderLine{}).
				Where("id = ?", member.ID).
				Updates(fields)
			if result.Error != nil {
				mu.Lock()
				failed = append(failed, member.ID)
				causes = append(causes, result.Error)
				mu.Unlock()
			}
			// Member failures are collected, not propagated, so the
			// remaining writes are still issued.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "group update interrupted")
	}

	if len(failed) == len(members) {
		return errors.Wrapf(causes[0], "failed to update group %s", code)
	}
	if len(failed) > 0 {
		return &PartialApplyError{GroupCode: code, FailedIDs: failed, Causes: causes}
	}
	return nil
}

// Dissolve clears the group code on every line currently carrying it. Partial
// dissolution is not supported; a single conditional update covers all members.
func (r *GroupRepository) Dissolve(ctx context.Context, code string) error {
	err := r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("group_code = ?", code).
		Update("group_code", nil).Error
	return errors.Wrap(err, "failed to dissolve group")
}
