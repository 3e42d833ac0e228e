package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mann275/marketplace/internal/cart/application"
	"github.com/Mann275/marketplace/internal/cart/domain"
	"github.com/Mann275/marketplace/pkg/auth"
)

type stubRepo struct {
	carts map[string]*domain.Cart
}

func newStubRepo() *stubRepo {
	return &stubRepo{carts: make(map[string]*domain.Cart)}
}

func (r *stubRepo) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	cart, ok := r.carts[userID]
	if !ok {
		return nil, application.ErrCartNotFound
	}
	return cart, nil
}

func (r *stubRepo) AddItem(_ context.Context, userID string, item domain.CartItem) error {
	cart, ok := r.carts[userID]
	if !ok {
		cart = &domain.Cart{UserID: userID}
		r.carts[userID] = cart
	}
	cart.Items = append(cart.Items, item)
	return nil
}

func (r *stubRepo) UpdateItemQuantity(_ context.Context, userID, productID string, quantity int) error {
	cart, ok := r.carts[userID]
	if !ok {
		return application.ErrCartNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = quantity
			return nil
		}
	}
	return application.ErrItemNotFound
}

func (r *stubRepo) RemoveItem(_ context.Context, userID, productID string) error {
	return r.UpdateItemQuantity(context.Background(), userID, productID, 0)
}

func (r *stubRepo) DeleteCart(_ context.Context, userID string) error {
	if _, ok := r.carts[userID]; !ok {
		return application.ErrCartNotFound
	}
	delete(r.carts, userID)
	return nil
}

type noopCache struct{}

func (noopCache) Get(_ context.Context, _ string) (*domain.Cart, error) {
	return nil, application.ErrCacheMiss
}
func (noopCache) Set(_ context.Context, _ string, _ *domain.Cart) error { return nil }
func (noopCache) Delete(_ context.Context, _ string) error              { return nil }

func newTestHandler(t *testing.T) (*Handler, *stubRepo) {
	t.Helper()
	repo := newStubRepo()
	log := slog.New(slog.DiscardHandler)
	return NewHandler(log, application.NewService(log, repo, noopCache{})), repo
}

func do(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	session := auth.Session{UserID: "u1", Role: auth.RoleCustomer}
	req = req.WithContext(auth.WithSession(req.Context(), session))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestGetCartEmptyForNewUser(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool        `json:"success"`
		Cart    domain.Cart `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "u1", body.Cart.UserID)
	assert.Empty(t, body.Cart.Items)
}

func TestAddItem(t *testing.T) {
	h, repo := newTestHandler(t)

	rec := do(h, http.MethodPost, "/items", `{"productId": "p1", "quantity": 2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.carts["u1"].Items, 1)
	assert.Equal(t, 2, repo.carts["u1"].Items[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := map[string]string{
		"bad json":        `{"productId": `,
		"missing product": `{"quantity": 2}`,
		"zero quantity":   `{"productId": "p1", "quantity": 0}`,
		"too many":        `{"productId": "p1", "quantity": 100}`,
		"negative":        `{"productId": "p1", "quantity": -1}`,
	}
	for name, body := range tests {
		rec := do(h, http.MethodPost, "/items", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestUpdateQuantity(t *testing.T) {
	h, repo := newTestHandler(t)
	repo.carts["u1"] = &domain.Cart{UserID: "u1", Items: []domain.CartItem{{ProductID: "p1", Quantity: 1}}}

	rec := do(h, http.MethodPut, "/items/p1", `{"quantity": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, repo.carts["u1"].Items[0].Quantity)

	rec = do(h, http.MethodPut, "/items/ghost", `{"quantity": 5}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveItemMissing(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(h, http.MethodDelete, "/items/p1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearCart(t *testing.T) {
	h, repo := newTestHandler(t)
	repo.carts["u1"] = &domain.Cart{UserID: "u1", Items: []domain.CartItem{{ProductID: "p1", Quantity: 1}}}

	rec := do(h, http.MethodDelete, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, repo.carts)

	// Clearing again is still a 200; a missing cart is already clear.
	rec = do(h, http.MethodDelete, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
