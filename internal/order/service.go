package order

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/vietcart/storefront/internal/domain"
)

var ErrIllegalTransition = errors.New("illegal transition of order status")

type Service struct {
	repo   OrderRepository
	events EventPublisher
}

func NewService(repo OrderRepository, events EventPublisher) *Service {
	return &Service{repo: repo, events: events}
}

// PlaceOrder persists a new order built from the submission. The initial
// status is CONFIRMED for cash on delivery and PENDING for gateway payments.
func (s *Service) PlaceOrder(ctx context.Context, sub domain.OrderSubmission, status domain.OrderStatus) (*domain.Order, error) {
	now := time.Now()
	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          sub.UserID,
		Phone:           sub.Phone,
		DeliveryAddress: sub.DeliveryAddress,
		Note:            sub.Note,
		PaymentMethod:   sub.PaymentMethod,
		Status:          status,
		DeliveryStatus:  domain.DeliveryStatusNotShipped,
		TotalAmount:     sub.TotalAmount,
		Currency:        sub.Currency,
		Items:           sub.Items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	// The order is already durable; a failed event publish is logged and the
	// cart-clear consumer simply never sees it.
	if errPublish := s.events.PublishOrderCreated(ctx, order); errPublish != nil {
		log.Printf("failed to publish order-created event for %v: %v", order.ID, errPublish)
	}

	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, rawID string) (*domain.Order, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	return s.repo.GetOrderByID(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return s.repo.ListOrdersByUserID(ctx, userID)
}

// SetPaymentOutcome resolves a pending gateway order once the provider has
// reported back. Only PENDING orders can be resolved.
func (s *Service) SetPaymentOutcome(ctx context.Context, rawID string, succeeded bool) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return ErrOrderNotFound
	}

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return err
	}

	next := domain.OrderStatusConfirmed
	if !succeeded {
		next = domain.OrderStatusPaymentFailed
	}
	if !order.Status.CanTransitionTo(next) {
		return ErrIllegalTransition
	}

	return s.repo.SetStatus(ctx, id, next)
}
