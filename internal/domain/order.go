package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	// OrderStatusPending is the initial status of a gateway order; it resolves
	// to CONFIRMED or PAYMENT_FAILED when the provider reports back.
	OrderStatusPending       OrderStatus = "PENDING"
	OrderStatusConfirmed     OrderStatus = "CONFIRMED"
	OrderStatusPaymentFailed OrderStatus = "PAYMENT_FAILED"
	OrderStatusProcessing    OrderStatus = "PROCESSING"
	OrderStatusShipped       OrderStatus = "SHIPPED"
	OrderStatusDelivered     OrderStatus = "DELIVERED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusPaymentFailed},
	OrderStatusConfirmed:  {OrderStatusProcessing},
	OrderStatusProcessing: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

type DeliveryStatus string

const (
	DeliveryStatusNotShipped DeliveryStatus = "NOT_SHIPPED"
	DeliveryStatusShipping   DeliveryStatus = "SHIPPING"
	DeliveryStatusDelivered  DeliveryStatus = "DELIVERED"
)

type OrderItem struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

type Order struct {
	ID              uuid.UUID      `json:"id"`
	UserID          int64          `json:"user_id"`
	Phone           string         `json:"phone"`
	DeliveryAddress string         `json:"delivery_address"`
	Note            string         `json:"note"`
	PaymentMethod   PaymentMethod  `json:"payment_method"`
	Status          OrderStatus    `json:"status"`
	DeliveryStatus  DeliveryStatus `json:"delivery_status"`
	TotalAmount     float64        `json:"total_amount"`
	Currency        string         `json:"currency"`
	Items           []OrderItem    `json:"items"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// OrderSubmission is the payload assembled from the cart and the checkout form
// right before the single order-creation call. It is built in one shot and
// never partially submitted.
type OrderSubmission struct {
	UserID          int64
	Phone           string
	DeliveryAddress string
	Note            string
	PaymentMethod   PaymentMethod
	Items           []OrderItem
	TotalAmount     float64
	Currency        string
}

// SubmissionResult is the outcome of submitting an order. The two payment
// paths produce structurally different follow-ups, so callers branch on the
// concrete type rather than on field presence.
type SubmissionResult interface {
	submissionResult()
}

// OrderConfirmed is the synchronous outcome of a cash-on-delivery submission.
type OrderConfirmed struct {
	OrderID uuid.UUID
}

// PaymentRedirect carries the external gateway URL the buyer must be sent to.
type PaymentRedirect struct {
	OrderID uuid.UUID
	URL     string
}

func (OrderConfirmed) submissionResult()  {}
func (PaymentRedirect) submissionResult() {}
