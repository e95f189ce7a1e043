package http

import (
	"context"
	"log"
	"net/http"
	"time"
)

type AuthHandler struct {
	sessions SessionStore
	carts    CartService
	timeout  time.Duration
}

func NewAuthHandler(sessions SessionStore, carts CartService, timeout time.Duration) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		carts:    carts,
		timeout:  timeout,
	}
}

// Logout ends the session and clears the cart. Clearing on the auth
// transition keeps one buyer's cart from leaking into the next session on a
// shared device.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	token := getSessionTokenFromContext(r.Context())
	if userID == 0 || token == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.sessions.Delete(ctx, token); err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.carts.ClearCart(ctx, userID); err != nil {
		// Session is already gone; the cart is orphaned but unreachable.
		log.Printf("failed to clear cart on logout for user %d: %v", userID, err)
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
