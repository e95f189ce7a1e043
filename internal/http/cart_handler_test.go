package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vietcart/storefront/internal/domain"
	"github.com/vietcart/storefront/internal/product"
)

type mockProductGetter struct {
	product *domain.Product
	err     error
}

func (m *mockProductGetter) GetProduct(context.Context, int64) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.product, nil
}

func cartRouter(handler *CartHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/cart", handler.GetCart)
	r.Delete("/cart", handler.ClearCart)
	r.Post("/cart/items", handler.AddItem)
	r.Put("/cart/items/{product_id}", handler.UpdateQuantity)
	r.Delete("/cart/items/{product_id}", handler.RemoveItem)
	return r
}

func TestGetCart_ReturnsDerivedTotals(t *testing.T) {
	carts := &mockCartService{cart: &domain.Cart{
		UserID: 1,
		Items: []domain.CartItem{
			{ProductID: 5, ProductName: "tea", UnitPrice: 10, Quantity: 2},
			{ProductID: 6, ProductName: "coffee", UnitPrice: 4.5, Quantity: 1},
		},
	}}
	handler := NewCartHandler(carts, &mockProductGetter{}, 5*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()

	cartRouter(handler).ServeHTTP(rec, authedRequest(req, 1))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var view CartViewDTO
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.TotalQuantity != 3 {
		t.Errorf("expected total quantity 3, got %d", view.TotalQuantity)
	}
	if view.TotalPrice != 24.5 {
		t.Errorf("expected total price 24.5, got %v", view.TotalPrice)
	}
}

func TestGetCart_RequiresAuth(t *testing.T) {
	handler := NewCartHandler(&mockCartService{}, &mockProductGetter{}, 5*time.Second)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()

	cartRouter(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAddItem_SnapshotsProduct(t *testing.T) {
	carts := &mockCartService{cart: &domain.Cart{
		UserID: 1,
		Items:  []domain.CartItem{{ProductID: 5, ProductName: "tea", UnitPrice: 10, Quantity: 2}},
	}}
	products := &mockProductGetter{product: &domain.Product{
		ID: 5, Name: "tea", Price: 10, Stock: 20,
	}}
	handler := NewCartHandler(carts, products, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":5,"quantity":2}`))
	rec := httptest.NewRecorder()

	cartRouter(handler).ServeHTTP(rec, authedRequest(req, 1))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	handler := NewCartHandler(&mockCartService{}, &mockProductGetter{}, 5*time.Second)

	for _, body := range []string{
		`{"product_id":5,"quantity":0}`,
		`{"product_id":5,"quantity":-1}`,
		`{"product_id":5,"quantity":100}`,
		`{"product_id":0,"quantity":1}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
		rec := httptest.NewRecorder()

		cartRouter(handler).ServeHTTP(rec, authedRequest(req, 1))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected status %d, got %d", body, http.StatusBadRequest, rec.Code)
		}
	}
}

func TestAddItem_InsufficientStock(t *testing.T) {
	products := &mockProductGetter{product: &domain.Product{ID: 5, Name: "tea", Price: 10, Stock: 1}}
	handler := NewCartHandler(&mockCartService{}, products, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":5,"quantity":3}`))
	rec := httptest.NewRecorder()

	cartRouter(handler).ServeHTTP(rec, authedRequest(req, 1))

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestAddItem_UnknownProduct(t *testing.T) {
	products := &mockProductGetter{err: product.ErrProductNotFound}
	handler := NewCartHandler(&mockCartService{}, products, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":999,"quantity":1}`))
	rec := httptest.NewRecorder()

	cartRouter(handler).ServeHTTP(rec, authedRequest(req, 1))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestUpdateQuantity_BadProductID(t *testing.T) {
	handler := NewCartHandler(&mockCartService{cart: &domain.Cart{UserID: 1}}, &mockProductGetter{}, 5*time.Second)

	for _, id := range []string{"abc", "-1", "0"} {
		req := httptest.NewRequest(http.MethodPut, "/cart/items/"+id, strings.NewReader(`{"quantity":2}`))
		rec := httptest.NewRecorder()

		cartRouter(handler).ServeHTTP(rec, authedRequest(req, 1))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q: expected status %d, got %d", id, http.StatusBadRequest, rec.Code)
		}
	}
}

func TestUpdateQuantity_ZeroReachesStore(t *testing.T) {
	// Zero is legal at the handler; the store collapses it to a removal.
	carts := &mockCartService{cart: &domain.Cart{UserID: 1}}
	handler := NewCartHandler(carts, &mockProductGetter{}, 5*time.Second)

	req := httptest.NewRequest(http.MethodPut, "/cart/items/5", strings.NewReader(`{"quantity":0}`))
	rec := httptest.NewRecorder()

	cartRouter(handler).ServeHTTP(rec, authedRequest(req, 1))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestRemoveItem(t *testing.T) {
	carts := &mockCartService{cart: &domain.Cart{UserID: 1}}
	handler := NewCartHandler(carts, &mockProductGetter{}, 5*time.Second)

	req := httptest.NewRequest(http.MethodDelete, "/cart/items/5", nil)
	rec := httptest.NewRecorder()

	cartRouter(handler).ServeHTTP(rec, authedRequest(req, 1))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestClearCart_RespondsWithEmptyView(t *testing.T) {
	handler := NewCartHandler(&mockCartService{}, &mockProductGetter{}, 5*time.Second)

	req := httptest.NewRequest(http.MethodDelete, "/cart", nil)
	rec := httptest.NewRecorder()

	cartRouter(handler).ServeHTTP(rec, authedRequest(req, 1))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var view CartViewDTO
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(view.Items) != 0 || view.TotalQuantity != 0 || view.TotalPrice != 0 {
		t.Errorf("expected empty cart view, got %+v", view)
	}
}
