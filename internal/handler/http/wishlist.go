package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/pkg/httputil"
	"github.com/markofilipovic2762/eshop-cms/pkg/validator"
)

// WishlistHandler serves the profile's wishlist.
type WishlistHandler struct {
	logger *slog.Logger
}

// NewWishlistHandler creates a wishlist handler.
func NewWishlistHandler(logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{logger: logger}
}

// WishlistResponse is the wishlist with its size.
type WishlistResponse struct {
	Items domain.Wishlist `json:"items"`
	Count int             `json:"count"`
}

// MembershipResponse reports whether one product is saved.
type MembershipResponse struct {
	ID         domain.ProductID `json:"id"`
	InWishlist bool             `json:"inWishlist"`
}

func wishlistResponse(items domain.Wishlist) WishlistResponse {
	return WishlistResponse{Items: items, Count: len(items)}
}

// GetWishlist handles GET /api/v1/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	s := storesFrom(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: wishlistResponse(s.Wishlist.Items())})
}

// AddItem handles POST /api/v1/wishlist/items
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item domain.WishlistItem
	if err := validator.DecodeAndValidate(r, &item); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := storesFrom(r.Context())
	if err := s.Wishlist.Add(r.Context(), item); err != nil {
		writeStoreError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: wishlistResponse(s.Wishlist.Items())})
}

// Toggle handles POST /api/v1/wishlist/items/toggle
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var item domain.WishlistItem
	if err := validator.DecodeAndValidate(r, &item); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := storesFrom(r.Context())
	in, err := s.Wishlist.Toggle(r.Context(), item)
	if err != nil {
		writeStoreError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: MembershipResponse{ID: item.ID, InWishlist: in}})
}

// Contains handles GET /api/v1/wishlist/items/{id}
func (h *WishlistHandler) Contains(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	s := storesFrom(r.Context())
	pid := domain.ProductID(id)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: MembershipResponse{ID: pid, InWishlist: s.Wishlist.Contains(pid)}})
}

// RemoveItem handles DELETE /api/v1/wishlist/items/{id}
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	s := storesFrom(r.Context())
	if err := s.Wishlist.Remove(r.Context(), domain.ProductID(id)); err != nil {
		writeStoreError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: wishlistResponse(s.Wishlist.Items())})
}

// ClearWishlist handles DELETE /api/v1/wishlist
func (h *WishlistHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	s := storesFrom(r.Context())
	if err := s.Wishlist.Clear(r.Context()); err != nil {
		writeStoreError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: wishlistResponse(s.Wishlist.Items())})
}
