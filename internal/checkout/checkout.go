// Package checkout prices the cart and places simulated orders.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/internal/store"
	apperrors "github.com/markofilipovic2762/eshop-cms/pkg/errors"
	"github.com/markofilipovic2762/eshop-cms/pkg/validator"
)

const (
	shippingFlat = 5.99
	taxRate      = 0.08
)

var ordersPlaced = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Checkout attempts by result.",
	},
	[]string{"result"},
)

// Quote is the price breakdown of a cart.
type Quote struct {
	ItemCount int     `json:"itemCount"`
	Subtotal  float64 `json:"subtotal"`
	Shipping  float64 `json:"shipping"`
	Tax       float64 `json:"tax"`
	Total     float64 `json:"total"`
}

// QuoteFor prices cart. Shipping is flat and only charged on a non-empty
// cart; tax applies to the subtotal.
func QuoteFor(cart domain.Cart) Quote {
	subtotal := cart.Subtotal()
	var shipping float64
	if subtotal > 0 {
		shipping = shippingFlat
	}
	tax := subtotal * taxRate

	return Quote{
		ItemCount: cart.ItemCount(),
		Subtotal:  roundCents(subtotal),
		Shipping:  shipping,
		Tax:       roundCents(tax),
		Total:     roundCents(subtotal + shipping + tax),
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Details are the contact and shipping fields of the checkout form.
type Details struct {
	FirstName     string `json:"firstName" validate:"required,max=100"`
	LastName      string `json:"lastName" validate:"required,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"omitempty,max=30"`
	Address       string `json:"address" validate:"required,max=200"`
	City          string `json:"city" validate:"required,max=100"`
	State         string `json:"state" validate:"required,max=100"`
	ZipCode       string `json:"zipCode" validate:"required,max=20"`
	Country       string `json:"country" validate:"required,oneof=US CA UK AU"`
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=credit-card paypal"`
}

// Order is a placed order.
type Order struct {
	Number    string        `json:"orderNumber"`
	ProfileID string        `json:"-"`
	UserID    domain.UserID `json:"userId,omitempty"`
	Items     domain.Cart   `json:"items"`
	Quote     Quote         `json:"quote"`
	Details   Details       `json:"details"`
	PlacedAt  time.Time     `json:"placedAt"`
}

// Notifier is told about every placed order.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order)
}

// Service places orders against a profile's cart.
type Service struct {
	delay    time.Duration
	notifier Notifier
	logger   *slog.Logger
	number   func() int
	now      func() time.Time
}

// NewService creates a checkout service. delay simulates order processing;
// notifier may be nil.
func NewService(delay time.Duration, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		delay:    delay,
		notifier: notifier,
		logger:   logger,
		number:   func() int { return 100000 + rand.Intn(900000) },
		now:      time.Now,
	}
}

// Quote prices the profile's current cart.
func (s *Service) Quote(stores *store.Stores) Quote {
	return QuoteFor(stores.Cart.Items())
}

// PlaceOrder validates d, waits out the processing delay and settles the
// ordered lines out of the cart. The cart is snapshotted before the delay;
// lines added meanwhile stay in the cart, and cancelling ctx during the
// delay leaves the cart untouched.
func (s *Service) PlaceOrder(ctx context.Context, stores *store.Stores, d Details) (*Order, error) {
	if err := validator.Validate(d); err != nil {
		ordersPlaced.WithLabelValues("invalid").Inc()
		return nil, err
	}

	items := stores.Cart.Items()
	if len(items) == 0 {
		ordersPlaced.WithLabelValues("empty_cart").Inc()
		return nil, apperrors.InvalidInput("cart is empty")
	}
	if d.PaymentMethod == "" {
		d.PaymentMethod = "credit-card"
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			ordersPlaced.WithLabelValues("cancelled").Inc()
			return nil, fmt.Errorf("place order: %w", ctx.Err())
		}
	}

	order := &Order{
		Number:    fmt.Sprintf("ORD-%06d", s.number()),
		ProfileID: stores.ProfileID,
		Items:     items,
		Quote:     QuoteFor(items),
		Details:   d,
		PlacedAt:  s.now().UTC(),
	}
	if sess := stores.Session.Current(); sess != nil {
		order.UserID = sess.ID
	}

	if err := stores.Cart.Settle(ctx, items); err != nil {
		ordersPlaced.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("settle cart after order: %w", err)
	}

	ordersPlaced.WithLabelValues("placed").Inc()
	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_number", order.Number),
		slog.Int("item_count", order.Quote.ItemCount),
		slog.Float64("total", order.Quote.Total),
	)

	if s.notifier != nil {
		s.notifier.OrderPlaced(ctx, order)
	}
	return order, nil
}
