package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/woodtrack/services/production/config"
)

// TransitionEvent is published whenever an order line changes status.
type TransitionEvent struct {
	LineID    string    `json:"line_id"`
	GroupCode string    `json:"group_code,omitempty"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Actor     string    `json:"actor"`
	Time      time.Time `json:"time"`
}

// Publisher sends events to the bus
type Publisher interface {
	PublishTransition(ctx context.Context, event TransitionEvent) error
	Close() error
}

// serviceBusPublisher implements Publisher on Azure Service Bus
type serviceBusPublisher struct {
	client *azservicebus.Client
	sender *azservicebus.Sender
}

// mockPublisher logs events locally when no connection string is configured
type mockPublisher struct{}

// NewPublisher creates a Publisher for the events queue
func NewPublisher(cfg config.AzureConfig) (Publisher, error) {
	if cfg.QueueConnStr == "" {
		log.Warn().Msg("Service Bus connection string not provided, events will be logged only")
		return &mockPublisher{}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.EventsQueue, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &serviceBusPublisher{client: client, sender: sender}, nil
}

// PublishTransition sends a transition event to the events queue
func (p *serviceBusPublisher) PublishTransition(ctx context.Context, event TransitionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal transition event")
	}

	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"source": "production",
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	return p.sender.SendMessage(ctx, msg, nil)
}

// Close closes the sender and the client
func (p *serviceBusPublisher) Close() error {
	if p.sender != nil {
		if err := p.sender.Close(context.Background()); err != nil {
			return err
		}
	}
	if p.client != nil {
		return p.client.Close(context.Background())
	}
	return nil
}

func (m *mockPublisher) PublishTransition(ctx context.Context, event TransitionEvent) error {
	log.Info().
		Str("line_id", event.LineID).
		Str("from", event.From).
		Str("to", event.To).
		Msg("transition event (mock publisher)")
	return nil
}

func (m *mockPublisher) Close() error {
	return nil
}

// Receiver consumes messages from a queue and hands them to a processor
type Receiver struct {
	client *azservicebus.Client
	queue  string
}

// NewReceiver creates a Receiver for the intake queue
func NewReceiver(cfg config.AzureConfig) (*Receiver, error) {
	if cfg.QueueConnStr == "" {
		return nil, errors.New("Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	return &Receiver{client: client, queue: cfg.IntakeQueue}, nil
}

// Run receives messages in batches until the context is cancelled. Failed
// messages are abandoned and returned to the queue.
func (r *Receiver) Run(ctx context.Context, processor MessageProcessor) error {
	log.Info().Str("queue", r.queue).Msg("starting intake consumer")

	receiver, err := r.client.NewReceiverForQueue(r.queue, &azservicebus.ReceiverOptions{
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create receiver for queue %s", r.queue)
	}
	defer receiver.Close(context.Background())

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("error receiving messages")
			time.Sleep(2 * time.Second)
			continue
		}

		for _, message := range messages {
			if err := processor.ProcessMessage(ctx, message); err != nil {
				log.Error().Err(err).Str("message_id", message.MessageID).Msg("error processing message")
				if err := receiver.AbandonMessage(ctx, message, nil); err != nil {
					log.Error().Err(err).Msg("error abandoning message")
				}
				continue
			}

			if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
				log.Error().Err(err).Msg("error completing message")
			}
		}
	}
}

// Close closes the underlying client
func (r *Receiver) Close() error {
	if r.client != nil {
		return r.client.Close(context.Background())
	}
	return nil
}
