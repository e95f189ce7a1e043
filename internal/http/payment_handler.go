package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/vietcart/storefront/internal/order"
	"github.com/vietcart/storefront/internal/payment/vnpay"
)

// GatewayVerifier checks signed gateway callback parameters.
type GatewayVerifier interface {
	VerifyReturn(q url.Values) (*vnpay.ReturnData, error)
}

// PaymentResolver applies a gateway outcome to a pending order.
type PaymentResolver interface {
	SetPaymentOutcome(ctx context.Context, rawID string, succeeded bool) error
}

type PaymentHandler struct {
	verifier GatewayVerifier
	orders   PaymentResolver
	timeout  time.Duration
}

func NewPaymentHandler(verifier GatewayVerifier, orders PaymentResolver, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		verifier: verifier,
		orders:   orders,
		timeout:  timeout,
	}
}

// ipnResponse is the acknowledgement shape VNPAY expects from an IPN endpoint.
type ipnResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// IPN handles the server-to-server VNPAY callback. It confirms or fails the
// pending order; the buyer-facing result page never mutates order state.
func (h *PaymentHandler) IPN(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	data, err := h.verifier.VerifyReturn(r.URL.Query())
	if err != nil {
		log.Printf("vnpay ipn rejected: %v", err)
		respondJSON(w, http.StatusOK, ipnResponse{RspCode: "97", Message: "Invalid signature"})
		return
	}

	err = h.orders.SetPaymentOutcome(ctx, data.TxnRef, data.Succeeded())
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		respondJSON(w, http.StatusOK, ipnResponse{RspCode: "01", Message: "Order not found"})
	case errors.Is(err, order.ErrIllegalTransition):
		respondJSON(w, http.StatusOK, ipnResponse{RspCode: "02", Message: "Order already confirmed"})
	case err != nil:
		log.Printf("vnpay ipn failed for order %s: %v", data.TxnRef, err)
		respondJSON(w, http.StatusOK, ipnResponse{RspCode: "99", Message: "Unknown error"})
	default:
		respondJSON(w, http.StatusOK, ipnResponse{RspCode: "00", Message: "Confirm Success"})
	}
}
