package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/markofilipovic2762/eshop-cms/internal/backend"
	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	apperrors "github.com/markofilipovic2762/eshop-cms/pkg/errors"
	"github.com/markofilipovic2762/eshop-cms/pkg/pagination"
	"github.com/markofilipovic2762/eshop-cms/pkg/validator"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Products(ctx context.Context, f backend.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockSource) Product(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockSource) Categories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func fixtureProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Desk Lamp", Description: "Warm light", Price: 25, Amount: 3, CategoryID: 1},
		{ID: 2, Name: "Chair", Description: "Oak chair with lamp hook", Price: 80, Amount: 0, CategoryID: 2},
		{ID: 3, Name: "Bulb", Description: "LED", Price: 5, Amount: 10, CategoryID: 1},
		{ID: 4, Name: "armchair", Description: "Soft", Price: 120, Amount: 1, CategoryID: 2},
	}
}

func ids(ps []domain.Product) []domain.ProductID {
	out := make([]domain.ProductID, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func newService(t *testing.T) (*Service, *mockSource) {
	t.Helper()
	src := &mockSource{}
	t.Cleanup(func() { src.AssertExpectations(t) })
	return NewService(src), src
}

func ptr(f float64) *float64 { return &f }

func TestList_FeaturedKeepsBackendOrder(t *testing.T) {
	svc, src := newService(t)
	src.On("Products", mock.Anything, backend.ProductFilter{}).Return(fixtureProducts(), nil)

	l, err := svc.List(context.Background(), Query{})

	require.NoError(t, err)
	assert.Equal(t, []domain.ProductID{1, 2, 3, 4}, ids(l.Data))
	assert.Equal(t, 4, l.TotalCount)
	assert.Equal(t, pagination.DefaultParams().PerPage, l.PerPage)
}

func TestList_Sorts(t *testing.T) {
	tests := map[string][]domain.ProductID{
		SortPriceLow:  {3, 1, 2, 4},
		SortPriceHigh: {4, 2, 1, 3},
		SortNewest:    {4, 3, 2, 1},
		SortName:      {4, 3, 2, 1},
	}
	for order, want := range tests {
		t.Run(order, func(t *testing.T) {
			svc, src := newService(t)
			src.On("Products", mock.Anything, backend.ProductFilter{}).Return(fixtureProducts(), nil)

			l, err := svc.List(context.Background(), Query{Sort: order})

			require.NoError(t, err)
			assert.Equal(t, want, ids(l.Data))
		})
	}
}

func TestList_SearchMatchesNameOrDescription(t *testing.T) {
	svc, src := newService(t)
	src.On("Products", mock.Anything, backend.ProductFilter{}).Return(fixtureProducts(), nil)

	l, err := svc.List(context.Background(), Query{Search: "  LAMP "})

	require.NoError(t, err)
	assert.Equal(t, []domain.ProductID{1, 2}, ids(l.Data))
}

func TestList_CategoryFilterIsEnforcedLocally(t *testing.T) {
	svc, src := newService(t)
	src.On("Products", mock.Anything, backend.ProductFilter{CategoryID: 2}).Return(fixtureProducts(), nil)

	l, err := svc.List(context.Background(), Query{CategoryID: 2})

	require.NoError(t, err)
	assert.Equal(t, []domain.ProductID{2, 4}, ids(l.Data))
}

func TestList_PriceRangeAndStock(t *testing.T) {
	svc, src := newService(t)
	src.On("Products", mock.Anything, backend.ProductFilter{}).Return(fixtureProducts(), nil)

	l, err := svc.List(context.Background(), Query{MinPrice: ptr(10), MaxPrice: ptr(100), InStock: true})

	require.NoError(t, err)
	assert.Equal(t, []domain.ProductID{1}, ids(l.Data))
}

func TestList_Facets(t *testing.T) {
	svc, src := newService(t)
	src.On("Products", mock.Anything, backend.ProductFilter{}).Return(fixtureProducts(), nil)

	l, err := svc.List(context.Background(), Query{Page: pagination.Params{Page: 1, PerPage: 1}})

	require.NoError(t, err)
	assert.Len(t, l.Data, 1)
	assert.Equal(t, 4, l.TotalPages)
	assert.Equal(t, PriceRange{Min: 5, Max: 120}, l.Facets.PriceRange)
	assert.Equal(t, Availability{InStock: 3, OutOfStock: 1}, l.Facets.Availability)
}

func TestList_EmptyResultHasZeroFacets(t *testing.T) {
	svc, src := newService(t)
	src.On("Products", mock.Anything, backend.ProductFilter{}).Return([]domain.Product{}, nil)

	l, err := svc.List(context.Background(), Query{})

	require.NoError(t, err)
	assert.Empty(t, l.Data)
	assert.Equal(t, Facets{}, l.Facets)
}

func TestList_InvalidQuery(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, Query{Sort: "random"})
	var valErr *validator.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "sort")

	_, err = svc.List(ctx, Query{MinPrice: ptr(50), MaxPrice: ptr(10)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestList_BackendError(t *testing.T) {
	svc, src := newService(t)
	boom := errors.New("backend down")
	src.On("Products", mock.Anything, backend.ProductFilter{}).Return(nil, boom)

	_, err := svc.List(context.Background(), Query{})

	assert.ErrorIs(t, err, boom)
}

func TestCategories_SortedByName(t *testing.T) {
	svc, src := newService(t)
	src.On("Categories", mock.Anything).Return([]domain.Category{{ID: 1, Name: "toys"}, {ID: 2, Name: "Books"}}, nil)

	cats, err := svc.Categories(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.Category{{ID: 2, Name: "Books"}, {ID: 1, Name: "toys"}}, cats)
}
