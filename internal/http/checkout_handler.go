package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/vietcart/storefront/internal/checkout"
	"github.com/vietcart/storefront/internal/domain"
)

// CheckoutService drives the submit and result paths.
// Consumers define this interface.
type CheckoutService interface {
	Submit(ctx context.Context, req checkout.SubmitRequest) (domain.SubmissionResult, error)
	Result(ctx context.Context, params *checkout.ResultParams) (*checkout.ResultView, error)
}

type CheckoutHandler struct {
	svc     CheckoutService
	carts   CartService
	timeout time.Duration
	homeURL string
}

func NewCheckoutHandler(svc CheckoutService, carts CartService, timeout time.Duration, homeURL string) *CheckoutHandler {
	if homeURL == "" {
		homeURL = "/"
	}
	return &CheckoutHandler{
		svc:     svc,
		carts:   carts,
		timeout: timeout,
		homeURL: homeURL,
	}
}

type SubmitRequestDTO struct {
	Phone           string `json:"phone"`
	DeliveryAddress string `json:"delivery_address"`
	Note            string `json:"note"`
	PaymentMethod   string `json:"payment_method"`
}

type SubmitResponseDTO struct {
	OrderID     string `json:"order_id"`
	Method      string `json:"method"`
	RedirectURL string `json:"redirect_url"`
}

type StepViewDTO struct {
	Step int          `json:"step"`
	View string       `json:"view"`
	Cart *CartViewDTO `json:"cart,omitempty"`
}

// Step resolves GET /checkout?step=N. The step is re-derived from the URL on
// every request; an invalid or unauthorized visit redirects home instead of
// rendering.
func (h *CheckoutHandler) Step(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	step, err := domain.ParseCheckoutStep(r.URL.Query().Get("step"))
	if err != nil {
		h.redirectHome(w, r)
		return
	}

	userID := getUserIDFromContext(r.Context())
	if err := checkout.AuthorizeStep(step, userID != 0); err != nil {
		h.redirectHome(w, r)
		return
	}

	if step == domain.StepResult {
		h.result(ctx, w, r)
		return
	}

	cart, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// An empty cart is a dead-end view, whatever the step says.
	if cart.IsEmpty() {
		respondJSON(w, http.StatusOK, StepViewDTO{Step: int(step), View: "cart_empty"})
		return
	}

	view := "cart"
	if step == domain.StepCheckout {
		view = "checkout"
	}
	cv := cartView(cart)
	respondJSON(w, http.StatusOK, StepViewDTO{Step: int(step), View: view, Cart: &cv})
}

func (h *CheckoutHandler) result(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	params, err := checkout.ParseResultParams(r.URL.Query())
	if err != nil {
		h.redirectHome(w, r)
		return
	}

	view, err := h.svc.Result(ctx, params)
	if err != nil {
		// Terminal for this page load; the client shows an error view with no
		// retry affordance.
		log.Printf("result fetch failed for request %s: %v", getRequestID(r.Context()), err)
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// Submit handles POST /checkout. On failure the cart and form state survive so
// the buyer can resubmit.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := h.svc.Submit(ctx, checkout.SubmitRequest{
		UserID:          userID,
		Phone:           req.Phone,
		DeliveryAddress: req.DeliveryAddress,
		Note:            req.Note,
		PaymentMethod:   req.PaymentMethod,
		ClientIP:        clientIP(r),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	switch res := result.(type) {
	case domain.OrderConfirmed:
		respondJSON(w, http.StatusCreated, SubmitResponseDTO{
			OrderID:     res.OrderID.String(),
			Method:      domain.PaymentMethodCOD.String(),
			RedirectURL: "/checkout?step=3&order_id=" + res.OrderID.String() + "&method=COD",
		})
	case domain.PaymentRedirect:
		respondJSON(w, http.StatusCreated, SubmitResponseDTO{
			OrderID:     res.OrderID.String(),
			Method:      domain.PaymentMethodVNPay.String(),
			RedirectURL: res.URL,
		})
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "unknown submission result")
	}
}

func (h *CheckoutHandler) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.homeURL, http.StatusFound)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
