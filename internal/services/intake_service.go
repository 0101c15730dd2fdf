package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/woodtrack/services/production/internal/messaging"
	"example.com/woodtrack/services/production/internal/metrics"
	"example.com/woodtrack/services/production/internal/models"
	"example.com/woodtrack/services/production/internal/repositories"
)

// OrderStore is the slice of the order repository intake needs
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByNumber(ctx context.Context, number string) (*models.Order, error)
}

// LineWriter is the slice of the line repository intake needs
type LineWriter interface {
	Create(ctx context.Context, line *models.OrderLine) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.OrderLine, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// IntakeService applies bus commands from upstream order entry. New lines
// always start in production.
type IntakeService struct {
	orders  OrderStore
	lines   LineWriter
	metrics *metrics.Metrics
}

// NewIntakeService creates an intake service
func NewIntakeService(orders OrderStore, lines LineWriter, m *metrics.Metrics) *IntakeService {
	return &IntakeService{orders: orders, lines: lines, metrics: m}
}

// HandleCreateOrder registers an order and its lines. The order is created on
// first sight of its number; subsequent messages append lines to it.
func (s *IntakeService) HandleCreateOrder(ctx context.Context, cmd messaging.CreateOrderCommand) error {
	s.metrics.Inc(metrics.CounterIntakeMessages)

	clientID, err := uuid.Parse(cmd.ClientID)
	if err != nil {
		s.metrics.Inc(metrics.CounterIntakeFailures)
		return errors.Wrap(err, "invalid client id")
	}

	order, err := s.orders.GetByNumber(ctx, cmd.OrderNumber)
	if errors.Is(err, repositories.ErrNotFound) {
		order = &models.Order{
			ID:          uuid.New(),
			ClientID:    clientID,
			OrderNumber: cmd.OrderNumber,
		}
		if err := s.orders.Create(ctx, order); err != nil {
			s.metrics.Inc(metrics.CounterIntakeFailures)
			return err
		}
	} else if err != nil {
		s.metrics.Inc(metrics.CounterIntakeFailures)
		return err
	}

	for _, lineCmd := range cmd.Lines {
		productID, err := uuid.Parse(lineCmd.ProductID)
		if err != nil {
			s.metrics.Inc(metrics.CounterIntakeFailures)
			return errors.Wrapf(err, "invalid product id %s", lineCmd.ProductID)
		}

		line := &models.OrderLine{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: productID,
			Status:    models.StatusProduction,
			Payload: models.LinePayload{
				Quantity:     lineCmd.Quantity,
				DeliveryDate: lineCmd.DeliveryDate,
				Note:         lineCmd.Note,
			},
		}
		if err := s.lines.Create(ctx, line); err != nil {
			s.metrics.Inc(metrics.CounterIntakeFailures)
			return err
		}
	}

	log.Info().
		Str("order_number", cmd.OrderNumber).
		Int("lines", len(cmd.Lines)).
		Msg("order registered from intake")
	return nil
}

// HandleCancelLine removes a line withdrawn upstream. Only lines still in
// production can be withdrawn; anything further along must be handled by hand.
func (s *IntakeService) HandleCancelLine(ctx context.Context, cmd messaging.CancelLineCommand) error {
	s.metrics.Inc(metrics.CounterIntakeMessages)

	lineID, err := uuid.Parse(cmd.LineID)
	if err != nil {
		s.metrics.Inc(metrics.CounterIntakeFailures)
		return errors.Wrap(err, "invalid line id")
	}

	line, err := s.lines.GetByID(ctx, lineID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Already gone, nothing to do
			return nil
		}
		s.metrics.Inc(metrics.CounterIntakeFailures)
		return err
	}
	if line.Status != models.StatusProduction {
		s.metrics.Inc(metrics.CounterIntakeFailures)
		return errors.Errorf("line %s is in %s and cannot be withdrawn", lineID, line.Status)
	}

	return s.lines.Delete(ctx, lineID)
}
