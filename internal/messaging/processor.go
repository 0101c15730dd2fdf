package messaging

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Event types accepted on the intake queue
const (
	EventCreateOrder = "CreateOrder"
	EventCancelLine  = "CancelLine"
)

// BusMessage is the common envelope for intake messages
type BusMessage struct {
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

// CreateOrderCommand registers an order and its lines from an upstream system
type CreateOrderCommand struct {
	ClientID    string              `json:"client_id"`
	OrderNumber string              `json:"order_number"`
	Lines       []CreateLineCommand `json:"lines"`
}

// CreateLineCommand is one line of an incoming order
type CreateLineCommand struct {
	ProductID    string `json:"product_id"`
	Quantity     int    `json:"quantity"`
	DeliveryDate string `json:"delivery_date"`
	Note         string `json:"note,omitempty"`
}

// CancelLineCommand removes a line that was withdrawn upstream
type CancelLineCommand struct {
	LineID string `json:"line_id"`
}

// IntakeHandler applies intake commands to the order store
type IntakeHandler interface {
	HandleCreateOrder(ctx context.Context, cmd CreateOrderCommand) error
	HandleCancelLine(ctx context.Context, cmd CancelLineCommand) error
}

// MessageProcessor processes one received bus message
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error
}

// Processor dispatches intake messages to their handlers
type Processor struct {
	handler IntakeHandler
}

// NewProcessor creates a Processor around an intake handler
func NewProcessor(handler IntakeHandler) *Processor {
	return &Processor{handler: handler}
}

// ProcessMessage decodes the envelope and dispatches on event type
func (p *Processor) ProcessMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error {
	var msg BusMessage
	if err := json.Unmarshal(message.Body, &msg); err != nil {
		return errors.Wrap(err, "error unmarshalling message")
	}

	log.Info().Str("eventType", msg.EventType).Msg("processing intake message")

	switch msg.EventType {
	case EventCreateOrder:
		var cmd CreateOrderCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return err
		}
		return p.handler.HandleCreateOrder(ctx, cmd)

	case EventCancelLine:
		var cmd CancelLineCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return err
		}
		return p.handler.HandleCancelLine(ctx, cmd)

	default:
		return errors.Errorf("unknown event type: %s", msg.EventType)
	}
}
