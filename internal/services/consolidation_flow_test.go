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

// Full consolidation scenario: lines produced separately are grouped for one
// truck, documented together off a single recorded delivery, completed
// together, and the group is dissolved without losing anything.
func TestConsolidationFlow(t *testing.T) {
	ctx := context.Background()

	travi := productionLine(1)
	travi.Payload.Note = "travi 20x20"
	tavole := productionLine(2)
	tavole.Payload.DeliveryDate = "2026-09-18"
	tavole.Payload.Note = "tavole"

	store := newFakeLineStore(travi, tavole)
	lifecycle, publisher := newLifecycle(store)
	groups := NewGroupService(store, &fakeGroupStore{lines: store}, metrics.New())

	// Both lines leave production independently
	require.NoError(t, lifecycle.ConfirmProduction(ctx, travi.ID, testActor()))
	require.NoError(t, lifecycle.ConfirmProduction(ctx, tavole.ID, testActor()))

	// Grouped for one truck; the first selection drives the shared date
	code, err := groups.CreateGroup(ctx, []uuid.UUID{travi.ID, tavole.ID})
	require.NoError(t, err)
	assert.Equal(t, "2026-09-15", store.get(tavole.ID).Payload.DeliveryDate)

	// One member is loaded and ready; the whole group follows
	require.NoError(t, lifecycle.ToggleReady(ctx, travi.ID, testActor()))
	assert.Equal(t, models.StatusReadyForDelivery, store.get(tavole.ID).Status)

	// A delivery is recorded on the triggering line and the group is documented
	require.NoError(t, lifecycle.AddDeliveryEvent(ctx, travi.ID, models.DeliveryEvent{Date: "2026-09-15"}))
	require.NoError(t, lifecycle.Dispatch(ctx, travi.ID, testActor()))
	assert.Equal(t, models.StatusDocumented, store.get(travi.ID).Status)
	assert.Equal(t, models.StatusDocumented, store.get(tavole.ID).Status)

	// Completion stamps every member
	require.NoError(t, lifecycle.Complete(ctx, tavole.ID, testActor()))
	require.NotNil(t, store.get(travi.ID).Payload.CompletedAt)
	require.NotNil(t, store.get(tavole.ID).Payload.CompletedAt)
	assert.Equal(t,
		store.get(travi.ID).Payload.CompletedAt.Timestamp,
		store.get(tavole.ID).Payload.CompletedAt.Timestamp)

	// The group is dissolved; nothing else changes
	require.NoError(t, groups.DissolveGroup(ctx, code))
	assert.Nil(t, store.get(travi.ID).GroupCode)
	assert.Equal(t, models.StatusCompleted, store.get(travi.ID).Status)
	assert.Equal(t, "travi 20x20", store.get(travi.ID).Payload.Note)

	// Every member transition was published
	events := publisher.published()
	assert.GreaterOrEqual(t, len(events), 8)
}
