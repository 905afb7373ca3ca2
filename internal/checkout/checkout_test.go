package checkout

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/internal/storage/memory"
	"github.com/markofilipovic2762/eshop-cms/internal/store"
	apperrors "github.com/markofilipovic2762/eshop-cms/pkg/errors"
	"github.com/markofilipovic2762/eshop-cms/pkg/validator"
)

type recordingNotifier struct {
	mu     sync.Mutex
	orders []*Order
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, o *Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, o)
}

func newStores(t *testing.T) *store.Stores {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.New(store.Deps{Storage: memory.New(), Logger: logger}, "p1")
	s.Init(context.Background())
	return s
}

func validDetails() Details {
	return Details{
		FirstName: "Ana",
		LastName:  "Petrovic",
		Email:     "ana@example.com",
		Address:   "1 Main St",
		City:      "Springfield",
		State:     "IL",
		ZipCode:   "62701",
		Country:   "US",
	}
}

func TestQuoteFor(t *testing.T) {
	cart := domain.Cart{
		{ID: 1, Name: "A", Price: 10, Quantity: 2},
		{ID: 2, Name: "B", Price: 5.5, Quantity: 1},
	}

	q := QuoteFor(cart)

	assert.Equal(t, 3, q.ItemCount)
	assert.Equal(t, 25.5, q.Subtotal)
	assert.Equal(t, 5.99, q.Shipping)
	assert.Equal(t, 2.04, q.Tax)
	assert.Equal(t, 33.53, q.Total)
}

func TestQuoteFor_EmptyCartHasNoShipping(t *testing.T) {
	assert.Equal(t, Quote{}, QuoteFor(nil))
}

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	require.NoError(t, s.Cart.Add(ctx, domain.CartItem{ID: 1, Name: "A", Price: 10, Quantity: 2}))

	n := &recordingNotifier{}
	svc := NewService(0, n, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.number = func() int { return 123456 }
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	order, err := svc.PlaceOrder(ctx, s, validDetails())

	require.NoError(t, err)
	assert.Equal(t, "ORD-123456", order.Number)
	assert.Equal(t, "p1", order.ProfileID)
	assert.Equal(t, "credit-card", order.Details.PaymentMethod)
	assert.Equal(t, 20.0, order.Quote.Subtotal)
	assert.Len(t, order.Items, 1)
	assert.Zero(t, s.Cart.ItemCount(), "cart is cleared")
	require.Len(t, n.orders, 1)
	assert.Same(t, order, n.orders[0])
}

func TestPlaceOrder_OrderNumberFormat(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	svc := NewService(0, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 20; i++ {
		require.NoError(t, s.Cart.Add(ctx, domain.CartItem{ID: 1, Name: "A", Price: 1, Quantity: 1}))
		order, err := svc.PlaceOrder(ctx, s, validDetails())
		require.NoError(t, err)
		assert.Regexp(t, `^ORD-[1-9][0-9]{5}$`, order.Number)
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	svc := NewService(0, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.PlaceOrder(context.Background(), newStores(t), validDetails())

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestPlaceOrder_InvalidDetails(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	require.NoError(t, s.Cart.Add(ctx, domain.CartItem{ID: 1, Name: "A", Price: 1, Quantity: 1}))
	svc := NewService(0, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	d := validDetails()
	d.Email = "nope"
	d.Country = "FR"

	_, err := svc.PlaceOrder(ctx, s, d)

	var valErr *validator.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "email")
	assert.Contains(t, valErr.Fields(), "country")
	assert.Equal(t, 1, s.Cart.ItemCount())
}

func TestPlaceOrder_CancelledDuringProcessing(t *testing.T) {
	s := newStores(t)
	require.NoError(t, s.Cart.Add(context.Background(), domain.CartItem{ID: 1, Name: "A", Price: 1, Quantity: 1}))
	n := &recordingNotifier{}
	svc := NewService(time.Hour, n, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.PlaceOrder(ctx, s, validDetails())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, s.Cart.ItemCount(), "cart untouched")
	assert.Empty(t, n.orders)
}

func TestPlaceOrder_KeepsLinesAddedDuringProcessing(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	require.NoError(t, s.Cart.Add(ctx, domain.CartItem{ID: 1, Name: "A", Price: 10, Quantity: 2}))
	svc := NewService(100*time.Millisecond, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		assert.NoError(t, s.Cart.Add(ctx, domain.CartItem{ID: 1, Name: "A", Price: 10, Quantity: 1}))
		assert.NoError(t, s.Cart.Add(ctx, domain.CartItem{ID: 2, Name: "B", Price: 4, Quantity: 3}))
	}()

	order, err := svc.PlaceOrder(ctx, s, validDetails())
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, domain.Cart{{ID: 1, Name: "A", Price: 10, Quantity: 2}}, order.Items)
	assert.Equal(t, domain.Cart{
		{ID: 1, Name: "A", Price: 10, Quantity: 1},
		{ID: 2, Name: "B", Price: 4, Quantity: 3},
	}, s.Cart.Items())
}

func TestPlaceOrder_WaitsForDelay(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	require.NoError(t, s.Cart.Add(ctx, domain.CartItem{ID: 1, Name: "A", Price: 1, Quantity: 1}))
	svc := NewService(30*time.Millisecond, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	start := time.Now()
	_, err := svc.PlaceOrder(ctx, s, validDetails())

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
