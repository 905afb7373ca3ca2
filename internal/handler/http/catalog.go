package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markofilipovic2762/eshop-cms/internal/catalog"
	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/pkg/httputil"
	"github.com/markofilipovic2762/eshop-cms/pkg/pagination"
	"github.com/markofilipovic2762/eshop-cms/pkg/validator"
)

// CatalogHandler serves products and categories.
type CatalogHandler struct {
	service *catalog.Service
	logger  *slog.Logger
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(svc *catalog.Service, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

func invalidParam(w http.ResponseWriter, msg string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: msg},
	})
}

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := catalog.Query{
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
		Page:   pagination.FromQuery(q),
	}

	if v := q.Get("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			invalidParam(w, "category must be a valid category id")
			return
		}
		query.CategoryID = id
	}
	for name, dst := range map[string]**float64{"minPrice": &query.MinPrice, "maxPrice": &query.MaxPrice} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			invalidParam(w, name+" must be a valid number")
			return
		}
		*dst = &price
	}
	if v := q.Get("inStock"); v != "" {
		in, err := strconv.ParseBool(v)
		if err != nil {
			invalidParam(w, "inStock must be true or false")
			return
		}
		query.InStock = in
	}

	listing, err := h.service.List(r.Context(), query)
	if err != nil {
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			httputil.WriteValidationError(w, err)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: listing})
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	p, err := h.service.Product(r.Context(), domain.ProductID(id))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p})
}

// ListCategories handles GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cats})
}
