package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusProduction, StatusDelivery))
	assert.True(t, CanTransition(StatusDelivery, StatusReadyForDelivery))
	assert.True(t, CanTransition(StatusReadyForDelivery, StatusDelivery))
	assert.True(t, CanTransition(StatusDelivery, StatusDocumented))
	assert.True(t, CanTransition(StatusReadyForDelivery, StatusDocumented))
	assert.True(t, CanTransition(StatusDocumented, StatusCompleted))

	// No backwards movement out of documented or completed
	assert.False(t, CanTransition(StatusDocumented, StatusDelivery))
	assert.False(t, CanTransition(StatusDocumented, StatusProduction))
	assert.False(t, CanTransition(StatusCompleted, StatusDocumented))

	// No skipping
	assert.False(t, CanTransition(StatusProduction, StatusReadyForDelivery))
	assert.False(t, CanTransition(StatusProduction, StatusDocumented))
	assert.False(t, CanTransition(StatusProduction, StatusCompleted))
	assert.False(t, CanTransition(StatusDelivery, StatusCompleted))

	// Self transitions are not transitions
	assert.False(t, CanTransition(StatusDelivery, StatusDelivery))

	// Unknown statuses never transition
	assert.False(t, CanTransition(Status("bogus"), StatusDelivery))
	assert.False(t, CanTransition(StatusProduction, Status("bogus")))
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusProduction, StatusDelivery, StatusReadyForDelivery, StatusDocumented, StatusCompleted} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Status("shipped").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusDocumented.Terminal())
}

func TestPayloadComplete(t *testing.T) {
	assert.True(t, LinePayload{Quantity: 1, DeliveryDate: "2026-09-15"}.Complete())
	assert.False(t, LinePayload{Quantity: 0, DeliveryDate: "2026-09-15"}.Complete())
	assert.False(t, LinePayload{Quantity: 5}.Complete())
	assert.False(t, LinePayload{}.Complete())
}
