package store

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
)

// Store names carried in Change.Store.
const (
	StoreCart     = "cart"
	StoreWishlist = "wishlist"
	StoreSession  = "session"
)

// Operations carried in Change.Op.
const (
	OpAdd            = "add"
	OpUpdateQuantity = "update_quantity"
	OpRemove         = "remove"
	OpClear          = "clear"
	OpSettle         = "settle"
	OpLogin          = "login"
	OpLoginFailed    = "login_failed"
	OpLogout         = "logout"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_store_operations_total",
		Help: "State changes applied to profile stores",
	},
	[]string{"store", "op"},
)

// Change describes one state transition of a store.
type Change struct {
	Store     string
	Op        string
	ProfileID string
	// ItemID is zero for whole-collection and session changes.
	ItemID domain.ProductID
}

// Listener receives changes after they have been applied and persisted.
type Listener func(Change)

type observers struct {
	mu   sync.Mutex
	next int
	subs map[int]Listener
}

func (o *observers) subscribe(l Listener) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.subs == nil {
		o.subs = make(map[int]Listener)
	}
	id := o.next
	o.next++
	o.subs[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

func (o *observers) notify(c Change) {
	operationsTotal.WithLabelValues(c.Store, c.Op).Inc()

	o.mu.Lock()
	subs := make([]Listener, 0, len(o.subs))
	for _, l := range o.subs {
		subs = append(subs, l)
	}
	o.mu.Unlock()

	for _, l := range subs {
		l(c)
	}
}

func (o *observers) reset() {
	o.mu.Lock()
	o.subs = nil
	o.mu.Unlock()
}
