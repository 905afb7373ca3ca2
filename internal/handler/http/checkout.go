package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/markofilipovic2762/eshop-cms/internal/checkout"
	"github.com/markofilipovic2762/eshop-cms/pkg/httputil"
	"github.com/markofilipovic2762/eshop-cms/pkg/validator"
)

// CheckoutHandler prices and places orders for the profile's cart.
type CheckoutHandler struct {
	service *checkout.Service
	logger  *slog.Logger
}

// NewCheckoutHandler creates a checkout handler.
func NewCheckoutHandler(svc *checkout.Service, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, logger: logger}
}

// GetQuote handles GET /api/v1/checkout/quote
func (h *CheckoutHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	s := storesFrom(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.Quote(s)})
}

// PlaceOrder handles POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req checkout.Details
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), storesFrom(r.Context()), req)
	if err != nil {
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			httputil.WriteValidationError(w, err)
			return
		}
		writeStoreError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}
