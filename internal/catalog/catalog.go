// Package catalog lists products for the storefront. The backend only
// filters by exact IDs and name, so search, price range, sorting and
// paging happen here.
package catalog

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/markofilipovic2762/eshop-cms/internal/backend"
	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	apperrors "github.com/markofilipovic2762/eshop-cms/pkg/errors"
	"github.com/markofilipovic2762/eshop-cms/pkg/pagination"
	"github.com/markofilipovic2762/eshop-cms/pkg/validator"
)

// Sort orders accepted by Query.Sort.
const (
	SortFeatured  = "featured"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortNewest    = "newest"
	SortName      = "name"
)

// Source is the product backend.
type Source interface {
	Products(ctx context.Context, f backend.ProductFilter) ([]domain.Product, error)
	Product(ctx context.Context, id domain.ProductID) (*domain.Product, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

// Query describes one listing request.
type Query struct {
	Search     string   `json:"search" validate:"max=200"`
	CategoryID int64    `json:"category" validate:"gte=0"`
	Sort       string   `json:"sort" validate:"omitempty,oneof=featured price-low price-high newest name"`
	MinPrice   *float64 `json:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice   *float64 `json:"maxPrice" validate:"omitempty,gte=0"`
	InStock    bool     `json:"inStock"`
	Page       pagination.Params
}

// Facets summarise the filtered set before paging.
type Facets struct {
	PriceRange   PriceRange   `json:"priceRange"`
	Availability Availability `json:"availability"`
}

// PriceRange is the cheapest and dearest matching product.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Availability counts matching products by stock.
type Availability struct {
	InStock    int `json:"inStock"`
	OutOfStock int `json:"outOfStock"`
}

// Listing is a page of products plus facets.
type Listing struct {
	pagination.Result[domain.Product]
	Facets Facets `json:"facets"`
}

// Service answers catalog queries.
type Service struct {
	source Source
}

// NewService creates a catalog service over source.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// List runs q against the backend's product list.
func (s *Service) List(ctx context.Context, q Query) (*Listing, error) {
	if err := validator.Validate(q); err != nil {
		return nil, err
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return nil, apperrors.InvalidInput("minPrice must not exceed maxPrice")
	}
	if q.Page.PerPage == 0 {
		q.Page = pagination.DefaultParams()
	}

	products, err := s.source.Products(ctx, backend.ProductFilter{CategoryID: q.CategoryID})
	if err != nil {
		return nil, err
	}

	matched := filter(products, q)
	sortProducts(matched, q.Sort)

	return &Listing{
		Result: pagination.Paginate(matched, q.Page),
		Facets: facets(matched),
	}, nil
}

// Product returns one product.
func (s *Service) Product(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	return s.source.Product(ctx, id)
}

// Categories returns every category sorted by name.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.source.Categories(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(cats, func(a, b domain.Category) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return cats, nil
}

func filter(in []domain.Product, q Query) []domain.Product {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]domain.Product, 0, len(in))
	for _, p := range in {
		// The backend may ignore the category parameter.
		if q.CategoryID > 0 && p.CategoryID != q.CategoryID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		if q.MinPrice != nil && p.Price < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && p.Price > *q.MaxPrice {
			continue
		}
		if q.InStock && !p.InStock() {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sortProducts(ps []domain.Product, order string) {
	switch order {
	case SortPriceLow:
		slices.SortStableFunc(ps, func(a, b domain.Product) int { return cmp.Compare(a.Price, b.Price) })
	case SortPriceHigh:
		slices.SortStableFunc(ps, func(a, b domain.Product) int { return cmp.Compare(b.Price, a.Price) })
	case SortNewest:
		// IDs are assigned in creation order.
		slices.SortStableFunc(ps, func(a, b domain.Product) int { return cmp.Compare(b.ID, a.ID) })
	case SortName:
		slices.SortStableFunc(ps, func(a, b domain.Product) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	}
}

func facets(ps []domain.Product) Facets {
	var f Facets
	for i, p := range ps {
		if i == 0 || p.Price < f.PriceRange.Min {
			f.PriceRange.Min = p.Price
		}
		if p.Price > f.PriceRange.Max {
			f.PriceRange.Max = p.Price
		}
		if p.InStock() {
			f.Availability.InStock++
		} else {
			f.Availability.OutOfStock++
		}
	}
	return f
}
