package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/woodtrack/services/production/internal/metrics"
	"example.com/woodtrack/services/production/internal/models"
)

func newGroupService(store *fakeLineStore) *GroupService {
	return NewGroupService(store, &fakeGroupStore{lines: store}, metrics.New())
}

func TestCreateGroupNeedsTwoLines(t *testing.T) {
	ctx := context.Background()
	store := newFakeLineStore(productionLine(1))
	svc := newGroupService(store)

	_, err := svc.CreateGroup(ctx, []uuid.UUID{lineID(1)})
	require.ErrorIs(t, err, ErrGroupTooSmall)

	_, err = svc.CreateGroup(ctx, nil)
	require.ErrorIs(t, err, ErrGroupTooSmall)
}

func TestCreateGroupAdoptsFirstLine(t *testing.T) {
	ctx := context.Background()

	first := productionLine(1)
	first.Status = models.StatusDelivery
	first.Payload.DeliveryDate = "2026-09-20"
	first.Payload.Note = "prima"

	second := productionLine(2)
	second.Status = models.StatusProduction
	second.Payload.DeliveryDate = "2026-09-05"
	second.Payload.Note = "seconda"
	second.Payload.Quantity = 7

	store := newFakeLineStore(first, second)
	svc := newGroupService(store)

	code, err := svc.CreateGroup(ctx, []uuid.UUID{first.ID, second.ID})
	require.NoError(t, err)
	require.NotEmpty(t, code)

	a := store.get(first.ID)
	b := store.get(second.ID)

	require.NotNil(t, a.GroupCode)
	require.NotNil(t, b.GroupCode)
	assert.Equal(t, code, *a.GroupCode)
	assert.Equal(t, code, *b.GroupCode)

	// Status and delivery date come from the first selected line
	assert.Equal(t, models.StatusDelivery, b.Status)
	assert.Equal(t, "2026-09-20", b.Payload.DeliveryDate)

	// Everything else in the payload stays per line
	assert.Equal(t, "seconda", b.Payload.Note)
	assert.Equal(t, 7, b.Payload.Quantity)
	assert.Equal(t, "prima", a.Payload.Note)
}

func TestCreateGroupRejectsGroupedLine(t *testing.T) {
	ctx := context.Background()

	a := productionLine(1)
	a.GroupCode = strptr("existing")
	b := productionLine(2)

	store := newFakeLineStore(a, b)
	svc := newGroupService(store)

	_, err := svc.CreateGroup(ctx, []uuid.UUID{a.ID, b.ID})
	require.ErrorIs(t, err, ErrAlreadyGrouped)
	assert.Nil(t, store.get(b.ID).GroupCode)
}

func TestDissolveGroupKeepsStatusAndPayload(t *testing.T) {
	ctx := context.Background()

	a := productionLine(1)
	a.Status = models.StatusReadyForDelivery
	a.GroupCode = strptr("g1")
	b := productionLine(2)
	b.Status = models.StatusReadyForDelivery
	b.GroupCode = strptr("g1")

	store := newFakeLineStore(a, b)
	svc := newGroupService(store)

	require.NoError(t, svc.DissolveGroup(ctx, "g1"))

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		line := store.get(id)
		assert.Nil(t, line.GroupCode)
		assert.Equal(t, models.StatusReadyForDelivery, line.Status)
		assert.Equal(t, "2026-09-15", line.Payload.DeliveryDate)
	}
}

func TestGroupUpdateDeliveryDate(t *testing.T) {
	ctx := context.Background()

	a := productionLine(1)
	a.GroupCode = strptr("g1")
	b := productionLine(2)
	b.GroupCode = strptr("g1")

	store := newFakeLineStore(a, b)
	svc := newGroupService(store)

	require.NoError(t, svc.UpdateDeliveryDate(ctx, "g1", "2026-11-11"))
	assert.Equal(t, "2026-11-11", store.get(a.ID).Payload.DeliveryDate)
	assert.Equal(t, "2026-11-11", store.get(b.ID).Payload.DeliveryDate)
}

func TestReconcileRealignsDivergedGroup(t *testing.T) {
	ctx := context.Background()

	// The member with the smallest id is the reference
	ref := productionLine(1)
	ref.Status = models.StatusReadyForDelivery
	ref.GroupCode = strptr("g1")
	ref.Payload.DeliveryDate = "2026-09-20"

	drifted := productionLine(2)
	drifted.Status = models.StatusDelivery
	drifted.GroupCode = strptr("g1")
	drifted.Payload.DeliveryDate = "2026-09-18"
	drifted.Payload.Note = "da tenere"

	aligned := productionLine(3)
	aligned.GroupCode = strptr("g2")
	other := productionLine(4)
	other.GroupCode = strptr("g2")

	store := newFakeLineStore(ref, drifted, aligned, other)
	svc := newGroupService(store)

	repaired, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	got := store.get(drifted.ID)
	assert.Equal(t, models.StatusReadyForDelivery, got.Status)
	assert.Equal(t, "2026-09-20", got.Payload.DeliveryDate)
	assert.Equal(t, "da tenere", got.Payload.Note)

	// Aligned groups are untouched
	assert.Equal(t, models.StatusProduction, store.get(aligned.ID).Status)
}

func TestReconcileLeavesCompletedMembersAlone(t *testing.T) {
	ctx := context.Background()

	// A half-applied completion: the reference is still documented, one member
	// already reached completed, a third drifted back at delivery.
	ref := productionLine(1)
	ref.Status = models.StatusDocumented
	ref.GroupCode = strptr("g1")
	ref.Payload.DeliveryDate = "2026-09-20"

	done := productionLine(2)
	done.Status = models.StatusCompleted
	done.GroupCode = strptr("g1")
	done.Payload.DeliveryDate = "2026-09-20"

	drifted := productionLine(3)
	drifted.Status = models.StatusDelivery
	drifted.GroupCode = strptr("g1")
	drifted.Payload.DeliveryDate = "2026-09-18"

	store := newFakeLineStore(ref, done, drifted)
	svc := newGroupService(store)

	repaired, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	// The drifter is realigned, the completed member never moves backwards.
	assert.Equal(t, models.StatusDocumented, store.get(drifted.ID).Status)
	assert.Equal(t, models.StatusCompleted, store.get(done.ID).Status)
	assert.Equal(t, "2026-09-20", store.get(done.ID).Payload.DeliveryDate)
}

func TestReconcileNoDivergence(t *testing.T) {
	ctx := context.Background()

	a := productionLine(1)
	a.GroupCode = strptr("g1")
	b := productionLine(2)
	b.GroupCode = strptr("g1")

	store := newFakeLineStore(a, b)
	svc := newGroupService(store)

	repaired, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}
