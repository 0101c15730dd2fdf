package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/woodtrack/services/production/internal/identity"
	"example.com/woodtrack/services/production/internal/metrics"
	"example.com/woodtrack/services/production/internal/models"
	"example.com/woodtrack/services/production/internal/repositories"
)

func newLifecycle(store *fakeLineStore) (*LifecycleService, *fakePublisher) {
	publisher := &fakePublisher{}
	groups := &fakeGroupStore{lines: store}
	return NewLifecycleService(store, groups, publisher, nil, metrics.New()), publisher
}

func testActor() identity.Actor {
	return identity.Actor{ID: lineID(99), Email: "op@segheria.it", Role: models.RoleOperator}
}

func productionLine(n byte) models.OrderLine {
	return models.OrderLine{
		ID:     lineID(n),
		Status: models.StatusProduction,
		Payload: models.LinePayload{
			Quantity:     10,
			DeliveryDate: "2026-09-15",
		},
	}
}

func TestTransitionForwardOnly(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		from models.Status
		to   models.Status
		ok   bool
	}{
		{"production to delivery", models.StatusProduction, models.StatusDelivery, true},
		{"production skips to ready", models.StatusProduction, models.StatusReadyForDelivery, false},
		{"production skips to documented", models.StatusProduction, models.StatusDocumented, false},
		{"delivery to ready", models.StatusDelivery, models.StatusReadyForDelivery, true},
		{"ready back to delivery", models.StatusReadyForDelivery, models.StatusDelivery, true},
		{"documented back to delivery", models.StatusDocumented, models.StatusDelivery, false},
		{"documented to completed", models.StatusDocumented, models.StatusCompleted, true},
		{"completed is terminal", models.StatusCompleted, models.StatusProduction, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line := productionLine(1)
			line.Status = tc.from
			line.Payload.Deliveries = []models.DeliveryEvent{{Date: "2026-09-10"}}
			store := newFakeLineStore(line)
			svc, _ := newLifecycle(store)

			err := svc.Transition(ctx, line.ID, tc.to, testActor())
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.to, store.get(line.ID).Status)
			} else {
				require.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tc.from, store.get(line.ID).Status)
			}
		})
	}
}

func TestTransitionToDocumentedRequiresDelivery(t *testing.T) {
	ctx := context.Background()

	line := productionLine(1)
	line.Status = models.StatusDelivery
	store := newFakeLineStore(line)
	svc, publisher := newLifecycle(store)

	err := svc.Transition(ctx, line.ID, models.StatusDocumented, testActor())
	require.ErrorIs(t, err, ErrNoDeliveries)
	assert.Equal(t, models.StatusDelivery, store.get(line.ID).Status)
	assert.Empty(t, publisher.published())
}

func TestTransitionPreconditionOnTriggeringLineOnly(t *testing.T) {
	ctx := context.Background()

	// Two grouped lines; only the triggering one has a recorded delivery.
	trigger := productionLine(1)
	trigger.Status = models.StatusDelivery
	trigger.GroupCode = strptr("g1")
	trigger.Payload.Deliveries = []models.DeliveryEvent{{Date: "2026-09-10", Note: "prima consegna"}}

	other := productionLine(2)
	other.Status = models.StatusDelivery
	other.GroupCode = strptr("g1")

	store := newFakeLineStore(trigger, other)
	svc, publisher := newLifecycle(store)

	require.NoError(t, svc.Transition(ctx, trigger.ID, models.StatusDocumented, testActor()))
	assert.Equal(t, models.StatusDocumented, store.get(trigger.ID).Status)
	assert.Equal(t, models.StatusDocumented, store.get(other.ID).Status)
	assert.Len(t, publisher.published(), 2)

	// Triggering from the member without deliveries is refused even though a
	// sibling has one.
	store2 := newFakeLineStore(trigger, other)
	store2.lines[trigger.ID] = trigger
	svc2, _ := newLifecycle(store2)
	err := svc2.Transition(ctx, other.ID, models.StatusDocumented, testActor())
	require.ErrorIs(t, err, ErrNoDeliveries)
}

func TestTransitionCompleteStampsEveryMember(t *testing.T) {
	ctx := context.Background()

	a := productionLine(1)
	a.Status = models.StatusDocumented
	a.GroupCode = strptr("g1")
	b := productionLine(2)
	b.Status = models.StatusDocumented
	b.GroupCode = strptr("g1")

	store := newFakeLineStore(a, b)
	svc, _ := newLifecycle(store)

	require.NoError(t, svc.Transition(ctx, a.ID, models.StatusCompleted, testActor()))

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		line := store.get(id)
		assert.Equal(t, models.StatusCompleted, line.Status)
		require.NotNil(t, line.Payload.CompletedAt)
		assert.Equal(t, "op@segheria.it", line.Payload.CompletedAt.User)
		assert.False(t, line.Payload.CompletedAt.Timestamp.IsZero())
	}
}

func TestTransitionStampFallsBackToActorID(t *testing.T) {
	ctx := context.Background()

	line := productionLine(1)
	line.Status = models.StatusDocumented
	store := newFakeLineStore(line)
	svc, _ := newLifecycle(store)

	actor := identity.Actor{ID: lineID(42)}
	require.NoError(t, svc.Transition(ctx, line.ID, models.StatusCompleted, actor))
	assert.Equal(t, lineID(42).String(), store.get(line.ID).Payload.CompletedAt.User)
}

func TestTransitionPartialApply(t *testing.T) {
	ctx := context.Background()

	a := productionLine(1)
	a.Status = models.StatusDelivery
	a.GroupCode = strptr("g1")
	b := productionLine(2)
	b.Status = models.StatusDelivery
	b.GroupCode = strptr("g1")
	c := productionLine(3)
	c.Status = models.StatusDelivery
	c.GroupCode = strptr("g1")

	store := newFakeLineStore(a, b, c)
	store.failUpdates[b.ID] = true
	svc, _ := newLifecycle(store)

	err := svc.Transition(ctx, a.ID, models.StatusReadyForDelivery, testActor())
	require.Error(t, err)
	require.True(t, repositories.IsPartialApply(err))

	// The failed member keeps its status, the rest moved. No rollback.
	assert.Equal(t, models.StatusReadyForDelivery, store.get(a.ID).Status)
	assert.Equal(t, models.StatusDelivery, store.get(b.ID).Status)
	assert.Equal(t, models.StatusReadyForDelivery, store.get(c.ID).Status)
}

func TestConfirmProduction(t *testing.T) {
	ctx := context.Background()

	line := productionLine(1)
	store := newFakeLineStore(line)
	svc, _ := newLifecycle(store)

	require.NoError(t, svc.ConfirmProduction(ctx, line.ID, testActor()))

	got := store.get(line.ID)
	assert.Equal(t, models.StatusDelivery, got.Status)
	require.NotNil(t, got.Payload.ProductionConfirmedAt)
	assert.Equal(t, "op@segheria.it", got.Payload.ProductionConfirmedAt.User)

	// Confirming twice is refused.
	err := svc.ConfirmProduction(ctx, line.ID, testActor())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestToggleReadyFlipsBothWays(t *testing.T) {
	ctx := context.Background()

	line := productionLine(1)
	line.Status = models.StatusDelivery
	store := newFakeLineStore(line)
	svc, _ := newLifecycle(store)

	require.NoError(t, svc.ToggleReady(ctx, line.ID, testActor()))
	assert.Equal(t, models.StatusReadyForDelivery, store.get(line.ID).Status)

	require.NoError(t, svc.ToggleReady(ctx, line.ID, testActor()))
	assert.Equal(t, models.StatusDelivery, store.get(line.ID).Status)

	other := productionLine(2)
	store2 := newFakeLineStore(other)
	svc2, _ := newLifecycle(store2)
	err := svc2.ToggleReady(ctx, other.ID, testActor())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDispatchStampsCompletedAt(t *testing.T) {
	ctx := context.Background()

	line := productionLine(1)
	line.Status = models.StatusReadyForDelivery
	line.Payload.Deliveries = []models.DeliveryEvent{{Date: "2026-09-10"}}
	store := newFakeLineStore(line)
	svc, _ := newLifecycle(store)

	require.NoError(t, svc.Dispatch(ctx, line.ID, testActor()))

	got := store.get(line.ID)
	assert.Equal(t, models.StatusDocumented, got.Status)
	require.NotNil(t, got.Payload.CompletedAt)
	assert.Equal(t, "op@segheria.it", got.Payload.CompletedAt.User)
}

func TestDeleteLineRegardlessOfStatus(t *testing.T) {
	ctx := context.Background()

	line := productionLine(1)
	line.Status = models.StatusDocumented
	store := newFakeLineStore(line)
	svc, _ := newLifecycle(store)

	require.NoError(t, svc.DeleteLine(ctx, line.ID, testActor()))
	_, err := store.GetByID(ctx, line.ID)
	require.ErrorIs(t, err, repositories.ErrNotFound)

	err = svc.DeleteLine(ctx, lineID(9), testActor())
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestUpdateDeliveryDatePropagatesToGroup(t *testing.T) {
	ctx := context.Background()

	a := productionLine(1)
	a.GroupCode = strptr("g1")
	a.Payload.Note = "nota a"
	b := productionLine(2)
	b.GroupCode = strptr("g1")
	b.Payload.Note = "nota b"

	store := newFakeLineStore(a, b)
	svc, _ := newLifecycle(store)

	require.NoError(t, svc.UpdateDeliveryDate(ctx, a.ID, "2026-10-01"))

	assert.Equal(t, "2026-10-01", store.get(a.ID).Payload.DeliveryDate)
	assert.Equal(t, "2026-10-01", store.get(b.ID).Payload.DeliveryDate)
	// The rest of each payload stays per line
	assert.Equal(t, "nota a", store.get(a.ID).Payload.Note)
	assert.Equal(t, "nota b", store.get(b.ID).Payload.Note)
}

func TestDeliveryLedger(t *testing.T) {
	ctx := context.Background()

	line := productionLine(1)
	line.Status = models.StatusDelivery
	store := newFakeLineStore(line)
	svc, _ := newLifecycle(store)

	require.NoError(t, svc.AddDeliveryEvent(ctx, line.ID, models.DeliveryEvent{Date: "2026-09-10"}))
	require.NoError(t, svc.AddDeliveryEvent(ctx, line.ID, models.DeliveryEvent{Date: "2026-09-12", Note: "saldo"}))
	require.NoError(t, svc.AddDeliveryEvent(ctx, line.ID, models.DeliveryEvent{Date: "2026-09-14"}))

	got := store.get(line.ID)
	require.Len(t, got.Payload.Deliveries, 3)
	assert.Equal(t, "2026-09-10", got.Payload.Deliveries[0].Date)
	assert.Equal(t, "2026-09-12", got.Payload.Deliveries[1].Date)

	// Remove the middle event; the others keep their order
	require.NoError(t, svc.RemoveDeliveryEvent(ctx, line.ID, 1))
	got = store.get(line.ID)
	require.Len(t, got.Payload.Deliveries, 2)
	assert.Equal(t, "2026-09-10", got.Payload.Deliveries[0].Date)
	assert.Equal(t, "2026-09-14", got.Payload.Deliveries[1].Date)

	err := svc.RemoveDeliveryEvent(ctx, line.ID, 5)
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestListViewOrdering(t *testing.T) {
	ctx := context.Background()

	// Two groups and two ungrouped lines, dates chosen so ungrouped earlier
	// dates still sort after every group.
	g1a := productionLine(1)
	g1a.GroupCode = strptr("g-late")
	g1a.Payload.DeliveryDate = "2026-09-20"
	g1b := productionLine(2)
	g1b.GroupCode = strptr("g-late")
	g1b.Payload.DeliveryDate = "2026-09-20"

	g2a := productionLine(3)
	g2a.GroupCode = strptr("g-early")
	g2a.Payload.DeliveryDate = "2026-09-05"

	g2b := productionLine(4)
	g2b.GroupCode = strptr("g-early")
	g2b.Payload.DeliveryDate = "2026-09-05"

	solo1 := productionLine(5)
	solo1.Payload.DeliveryDate = "2026-09-01"
	solo2 := productionLine(6)
	solo2.Payload.DeliveryDate = "2026-09-10"

	incomplete := productionLine(7)
	incomplete.Payload.DeliveryDate = ""

	store := newFakeLineStore(g1a, g1b, g2a, g2b, solo1, solo2, incomplete)
	svc, _ := newLifecycle(store)

	lines, err := svc.ListView(ctx, models.StatusProduction)
	require.NoError(t, err)
	require.Len(t, lines, 6)

	// Groups first, earliest group date first, members contiguous
	assert.Equal(t, "g-early", *lines[0].GroupCode)
	assert.Equal(t, "g-early", *lines[1].GroupCode)
	assert.Equal(t, "g-late", *lines[2].GroupCode)
	assert.Equal(t, "g-late", *lines[3].GroupCode)

	// Then ungrouped by ascending delivery date
	assert.Equal(t, solo1.ID, lines[4].ID)
	assert.Equal(t, solo2.ID, lines[5].ID)
}

func TestSetNote(t *testing.T) {
	ctx := context.Background()

	line := productionLine(1)
	store := newFakeLineStore(line)
	svc, _ := newLifecycle(store)

	require.NoError(t, svc.SetNote(ctx, line.ID, "controllare umidità"))
	assert.Equal(t, "controllare umidità", store.get(line.ID).Payload.Note)
}
