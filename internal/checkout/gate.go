package checkout

import (
	"errors"
	"net/url"

	"github.com/vietcart/storefront/internal/domain"
)

var (
	// ErrInvalidDeepLink marks a forged or incomplete checkout URL. Callers
	// redirect home instead of rendering an error.
	ErrInvalidDeepLink = errors.New("invalid checkout deep link")
	ErrAuthRequired    = errors.New("authentication required")
)

// AuthorizeStep re-derives step access from scratch on every request. Buyers
// can land on any step directly via back/forward navigation or a gateway
// redirect, so nothing rendered earlier is trusted.
func AuthorizeStep(step domain.CheckoutStep, authenticated bool) error {
	if step.RequiresAuth() && !authenticated {
		return ErrAuthRequired
	}
	return nil
}

// ResultParams are the URL parameters the result step consumes. OrderID stays
// an opaque string here; the order fetch resolves it.
type ResultParams struct {
	OrderID      string
	Method       domain.PaymentMethod
	ResponseCode string
}

// ParseResultParams validates the untrusted result-step parameters: order_id
// must be present, method must be a known payment method, and gateway payments
// must carry the provider response code.
func ParseResultParams(q url.Values) (*ResultParams, error) {
	orderID := q.Get("order_id")
	if orderID == "" {
		return nil, ErrInvalidDeepLink
	}

	method, err := domain.ParsePaymentMethod(q.Get("method"))
	if err != nil {
		return nil, ErrInvalidDeepLink
	}

	responseCode := q.Get("vnp_ResponseCode")
	if method == domain.PaymentMethodVNPay && responseCode == "" {
		return nil, ErrInvalidDeepLink
	}

	return &ResultParams{
		OrderID:      orderID,
		Method:       method,
		ResponseCode: responseCode,
	}, nil
}
