package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/pkg/httputil"
	"github.com/markofilipovic2762/eshop-cms/pkg/validator"
)

// CartHandler serves the profile's cart.
type CartHandler struct {
	logger *slog.Logger
}

// NewCartHandler creates a cart handler.
func NewCartHandler(logger *slog.Logger) *CartHandler {
	return &CartHandler{logger: logger}
}

// AddItemRequest is a product snapshot plus quantity. Quantity defaults
// to 1.
type AddItemRequest struct {
	ID       domain.ProductID `json:"id" validate:"required,gt=0"`
	Name     string           `json:"name" validate:"required,max=500"`
	Price    float64          `json:"price" validate:"gte=0"`
	Quantity int              `json:"quantity" validate:"gte=0"`
	Image    string           `json:"image"`
}

// UpdateQuantityRequest sets a line's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=1"`
}

// CartResponse is the cart with its derived totals.
type CartResponse struct {
	Items     domain.Cart `json:"items"`
	ItemCount int         `json:"itemCount"`
	Subtotal  float64     `json:"subtotal"`
}

func cartResponse(items domain.Cart) CartResponse {
	return CartResponse{Items: items, ItemCount: items.ItemCount(), Subtotal: items.Subtotal()}
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := storesFrom(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartResponse(s.Cart.Items())})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	s := storesFrom(r.Context())
	item := domain.CartItem{ID: req.ID, Name: req.Name, Price: req.Price, Quantity: req.Quantity, Image: req.Image}
	if err := s.Cart.Add(r.Context(), item); err != nil {
		writeStoreError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartResponse(s.Cart.Items())})
}

// UpdateQuantity handles PUT /api/v1/cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := storesFrom(r.Context())
	if err := s.Cart.UpdateQuantity(r.Context(), domain.ProductID(id), req.Quantity); err != nil {
		writeStoreError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartResponse(s.Cart.Items())})
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	s := storesFrom(r.Context())
	if err := s.Cart.Remove(r.Context(), domain.ProductID(id)); err != nil {
		writeStoreError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartResponse(s.Cart.Items())})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s := storesFrom(r.Context())
	if err := s.Cart.Clear(r.Context()); err != nil {
		writeStoreError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cartResponse(s.Cart.Items())})
}
