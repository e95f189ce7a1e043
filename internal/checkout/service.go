package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vietcart/storefront/internal/domain"
	"github.com/vietcart/storefront/internal/payment/vnpay"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

// CartStore is the slice of the cart service the checkout flow needs.
type CartStore interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID int64) error
}

type OrderStore interface {
	PlaceOrder(ctx context.Context, sub domain.OrderSubmission, status domain.OrderStatus) (*domain.Order, error)
	GetOrder(ctx context.Context, rawID string) (*domain.Order, error)
}

type PaymentURLBuilder interface {
	BuildPaymentURL(orderID string, amount float64, clientIP string, createdAt time.Time) (string, error)
}

// SubmitRequest carries the checkout form plus request context. Field
// validation runs before any order call is issued.
type SubmitRequest struct {
	UserID          int64  `validate:"required"`
	Phone           string `validate:"required,min=8,max=15"`
	DeliveryAddress string `validate:"required"`
	Note            string
	PaymentMethod   string `validate:"required,oneof=COD VNPAY"`
	ClientIP        string
}

type Service struct {
	carts    CartStore
	orders   OrderStore
	gateway  PaymentURLBuilder
	validate *validator.Validate
}

func NewService(carts CartStore, orders OrderStore, gateway PaymentURLBuilder) *Service {
	return &Service{
		carts:    carts,
		orders:   orders,
		gateway:  gateway,
		validate: validator.New(),
	}
}

// Submit assembles an order submission from the current cart and the form,
// creates the order over exactly one of the two payment paths and clears the
// cart on success. Every failure path leaves the cart untouched so the buyer
// can retry with their state intact.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (domain.SubmissionResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.GetCart(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	sub := buildSubmission(cart, req, method)

	if method == domain.PaymentMethodCOD {
		order, errPlace := s.orders.PlaceOrder(ctx, sub, domain.OrderStatusConfirmed)
		if errPlace != nil {
			return nil, fmt.Errorf("failed to create order: %w", errPlace)
		}

		s.clearCart(ctx, req.UserID)
		return domain.OrderConfirmed{OrderID: order.ID}, nil
	}

	order, errPlace := s.orders.PlaceOrder(ctx, sub, domain.OrderStatusPending)
	if errPlace != nil {
		return nil, fmt.Errorf("failed to create order: %w", errPlace)
	}

	payURL, errURL := s.gateway.BuildPaymentURL(order.ID.String(), order.TotalAmount, req.ClientIP, order.CreatedAt)
	if errURL != nil {
		// The pending order stays behind unpaid; it is never confirmed
		// without a gateway callback, and the cart is kept for a retry.
		return nil, fmt.Errorf("failed to build payment url: %w", errURL)
	}

	s.clearCart(ctx, req.UserID)
	return domain.PaymentRedirect{OrderID: order.ID, URL: payURL}, nil
}

// buildSubmission snapshots the cart and the form into one immutable payload.
func buildSubmission(cart *domain.Cart, req SubmitRequest, method domain.PaymentMethod) domain.OrderSubmission {
	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.UnitPrice * float64(item.Quantity),
		})
	}

	return domain.OrderSubmission{
		UserID:          req.UserID,
		Phone:           req.Phone,
		DeliveryAddress: req.DeliveryAddress,
		Note:            req.Note,
		PaymentMethod:   method,
		Items:           items,
		TotalAmount:     cart.TotalPrice(),
		Currency:        "VND",
	}
}

func (s *Service) clearCart(ctx context.Context, userID int64) {
	// The order is already placed; a failed clear is logged and the
	// order-created consumer converges the leftover cart.
	if err := s.carts.ClearCart(ctx, userID); err != nil {
		log.Printf("failed to clear cart for user %d: %v", userID, err)
	}
}

// Result view templates.
const (
	TemplateCODConfirmation = "cod_confirmation"
	TemplateGatewayResult   = "gateway_result"
)

type ResultView struct {
	Template         string        `json:"template"`
	PaymentSucceeded bool          `json:"payment_succeeded"`
	Order            *domain.Order `json:"order"`
}

// Result fetches the order named by validated deep-link parameters and picks
// the result template. A fetch failure is terminal for this page load; the
// caller renders an error view without retrying.
func (s *Service) Result(ctx context.Context, params *ResultParams) (*ResultView, error) {
	order, err := s.orders.GetOrder(ctx, params.OrderID)
	if err != nil {
		return nil, err
	}

	if params.Method == domain.PaymentMethodCOD {
		return &ResultView{
			Template:         TemplateCODConfirmation,
			PaymentSucceeded: true,
			Order:            order,
		}, nil
	}

	return &ResultView{
		Template:         TemplateGatewayResult,
		PaymentSucceeded: params.ResponseCode == vnpay.ResponseCodeSuccess,
		Order:            order,
	}, nil
}
