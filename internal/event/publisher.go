// Package event publishes storefront state changes and placed orders to
// Kafka. Publishing never blocks the request that caused the change.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/markofilipovic2762/eshop-cms/internal/checkout"
	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/internal/store"
	pkgkafka "github.com/markofilipovic2762/eshop-cms/pkg/kafka"
	"github.com/markofilipovic2762/eshop-cms/pkg/logger"
)

// Kafka topics.
const (
	TopicCartUpdated       = "storefront.cart.updated"
	TopicWishlistUpdated   = "storefront.wishlist.updated"
	TopicSessionChanged    = "storefront.session.changed"
	TopicCheckoutCompleted = "storefront.checkout.completed"
)

// Aggregate types.
const (
	AggregateProfile = "profile"
	AggregateOrder   = "order"
)

// Source identifies events emitted by this service.
const Source = "storefront"

const (
	defaultQueueSize = 1024
	publishTimeout   = 5 * time.Second
)

var eventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_events_total",
		Help: "Domain events by topic and outcome.",
	},
	[]string{"topic", "result"},
)

// Producer sends one event to a topic. *pkgkafka.Producer satisfies it.
type Producer interface {
	Publish(ctx context.Context, topic string, e *pkgkafka.Event) error
}

// CartUpdatedData is the payload of storefront.cart.updated.
type CartUpdatedData struct {
	ProfileID string           `json:"profile_id"`
	Op        string           `json:"op"`
	ItemID    domain.ProductID `json:"item_id,omitempty"`
	ItemCount int              `json:"item_count"`
	Subtotal  float64          `json:"subtotal"`
}

// WishlistUpdatedData is the payload of storefront.wishlist.updated.
type WishlistUpdatedData struct {
	ProfileID string           `json:"profile_id"`
	Op        string           `json:"op"`
	ItemID    domain.ProductID `json:"item_id,omitempty"`
	Size      int              `json:"size"`
}

// SessionChangedData is the payload of storefront.session.changed.
type SessionChangedData struct {
	ProfileID string        `json:"profile_id"`
	Op        string        `json:"op"`
	UserID    domain.UserID `json:"user_id,omitempty"`
}

// CheckoutCompletedData is the payload of storefront.checkout.completed.
type CheckoutCompletedData struct {
	OrderNumber string        `json:"order_number"`
	ProfileID   string        `json:"profile_id"`
	UserID      domain.UserID `json:"user_id,omitempty"`
	ItemCount   int           `json:"item_count"`
	Total       float64       `json:"total"`
	PlacedAt    time.Time     `json:"placed_at"`
}

type outgoing struct {
	topic string
	event *pkgkafka.Event
}

// Publisher turns store changes and orders into events and hands them to
// a background worker. When the queue is full new events are dropped.
type Publisher struct {
	producer Producer
	logger   *slog.Logger
	queue    chan outgoing

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewPublisher starts a publisher with its worker goroutine.
func NewPublisher(producer Producer, logger *slog.Logger) *Publisher {
	return newPublisher(producer, logger, defaultQueueSize)
}

func newPublisher(producer Producer, logger *slog.Logger, queueSize int) *Publisher {
	p := &Publisher{
		producer: producer,
		logger:   logger,
		queue:    make(chan outgoing, queueSize),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Attach subscribes to every store in s. Use it as a Registry.OnCreate
// hook.
func (p *Publisher) Attach(s *store.Stores) {
	s.Subscribe(func(c store.Change) { p.onChange(s, c) })
}

// OrderPlaced publishes storefront.checkout.completed.
func (p *Publisher) OrderPlaced(ctx context.Context, o *checkout.Order) {
	data := CheckoutCompletedData{
		OrderNumber: o.Number,
		ProfileID:   o.ProfileID,
		UserID:      o.UserID,
		ItemCount:   o.Quote.ItemCount,
		Total:       o.Quote.Total,
		PlacedAt:    o.PlacedAt,
	}
	p.enqueue(ctx, TopicCheckoutCompleted, o.Number, AggregateOrder, data)
}

func (p *Publisher) onChange(s *store.Stores, c store.Change) {
	ctx := context.Background()

	switch c.Store {
	case store.StoreCart:
		items := s.Cart.Items()
		p.enqueue(ctx, TopicCartUpdated, c.ProfileID, AggregateProfile, CartUpdatedData{
			ProfileID: c.ProfileID,
			Op:        c.Op,
			ItemID:    c.ItemID,
			ItemCount: items.ItemCount(),
			Subtotal:  items.Subtotal(),
		})
	case store.StoreWishlist:
		p.enqueue(ctx, TopicWishlistUpdated, c.ProfileID, AggregateProfile, WishlistUpdatedData{
			ProfileID: c.ProfileID,
			Op:        c.Op,
			ItemID:    c.ItemID,
			Size:      s.Wishlist.Len(),
		})
	case store.StoreSession:
		data := SessionChangedData{ProfileID: c.ProfileID, Op: c.Op}
		if sess := s.Session.Current(); sess != nil {
			data.UserID = sess.ID
		}
		p.enqueue(ctx, TopicSessionChanged, c.ProfileID, AggregateProfile, data)
	}
}

func (p *Publisher) enqueue(ctx context.Context, topic, aggregateID, aggregateType string, data any) {
	e, err := pkgkafka.NewEvent(topic, Source, pkgkafka.Aggregate{Type: aggregateType, ID: aggregateID}, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "build event", slog.String("topic", topic), slog.String("error", err.Error()))
		eventsTotal.WithLabelValues(topic, "error").Inc()
		return
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		e.WithCorrelationID(id)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		eventsTotal.WithLabelValues(topic, "dropped").Inc()
		return
	}

	select {
	case p.queue <- outgoing{topic: topic, event: e}:
	default:
		eventsTotal.WithLabelValues(topic, "dropped").Inc()
		p.logger.WarnContext(ctx, "event queue full, dropping event", slog.String("topic", topic))
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for out := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := p.producer.Publish(ctx, out.topic, out.event)
		cancel()

		if err != nil {
			eventsTotal.WithLabelValues(out.topic, "error").Inc()
			p.logger.Warn("publish event failed",
				slog.String("topic", out.topic),
				slog.String("event_id", out.event.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		eventsTotal.WithLabelValues(out.topic, "published").Inc()
	}
}

// Close stops accepting events and waits for queued ones to be sent, or
// for ctx to end.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain event queue: %w", ctx.Err())
	}
}
