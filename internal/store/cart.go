package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/internal/storage"
)

const cartKey = "cart"

// Cart holds the profile's cart lines. Every mutation is persisted before
// the lock is released, so the stored copy follows mutation order.
type Cart struct {
	mu        sync.Mutex
	items     domain.Cart
	disposed  bool
	profileID string
	storage   storage.Store
	logger    *slog.Logger
	observers observers
}

func newCart(profileID string, s storage.Store, logger *slog.Logger) *Cart {
	return &Cart{profileID: profileID, storage: s, logger: logger}
}

// Init replaces the in-memory cart with the persisted one. Missing or
// corrupt data yields an empty cart.
func (c *Cart) Init(ctx context.Context) {
	items, ok := storage.Load[domain.Cart](ctx, c.storage, cartKey, c.logger)
	if !ok {
		items = nil
	}
	items = sanitizeCart(ctx, items, c.logger)

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

// Add appends item, or adds its quantity to the existing line with the
// same ID.
func (c *Cart) Add(ctx context.Context, item domain.CartItem) error {
	err := c.mutate(ctx, func() {
		if i := c.items.IndexOf(item.ID); i >= 0 {
			c.items[i].Quantity += item.Quantity
			return
		}
		c.items = append(c.items, item)
	})
	if err != nil {
		return err
	}
	c.emit(OpAdd, item.ID)
	return nil
}

// UpdateQuantity sets the quantity of the line with id as given; the value
// is not clamped. A missing id is a no-op.
func (c *Cart) UpdateQuantity(ctx context.Context, id domain.ProductID, quantity int) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	i := c.items.IndexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return nil
	}
	c.items[i].Quantity = quantity
	c.persist(ctx)
	c.mu.Unlock()

	c.emit(OpUpdateQuantity, id)
	return nil
}

// Remove drops the line with id. A missing id is a no-op.
func (c *Cart) Remove(ctx context.Context, id domain.ProductID) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	i := c.items.IndexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return nil
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	c.persist(ctx)
	c.mu.Unlock()

	c.emit(OpRemove, id)
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	if err := c.mutate(ctx, func() { c.items = domain.Cart{} }); err != nil {
		return err
	}
	c.emit(OpClear, 0)
	return nil
}

// Settle takes the quantities of an ordered snapshot out of the cart.
// Lines left with no quantity are dropped; anything added after the
// snapshot stays.
func (c *Cart) Settle(ctx context.Context, ordered domain.Cart) error {
	err := c.mutate(ctx, func() {
		taken := make(map[domain.ProductID]int, len(ordered))
		for _, it := range ordered {
			taken[it.ID] += it.Quantity
		}
		kept := make(domain.Cart, 0, len(c.items))
		for _, it := range c.items {
			it.Quantity -= taken[it.ID]
			if it.Quantity > 0 {
				kept = append(kept, it)
			}
		}
		c.items = kept
	})
	if err != nil {
		return err
	}
	c.emit(OpSettle, 0)
	return nil
}

// Items returns a snapshot of the cart lines.
func (c *Cart) Items() domain.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Clone()
}

// ItemCount returns the sum of quantities.
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.ItemCount()
}

// Subtotal returns the sum of price*quantity.
func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Subtotal()
}

// Subscribe registers l for changes until the returned func is called.
func (c *Cart) Subscribe(l Listener) func() {
	return c.observers.subscribe(l)
}

func (c *Cart) mutate(ctx context.Context, fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ErrDisposed
	}
	fn()
	c.persist(ctx)
	return nil
}

// persist must be called with c.mu held.
func (c *Cart) persist(ctx context.Context) {
	storage.Save(context.WithoutCancel(ctx), c.storage, cartKey, c.items, c.logger)
}

func (c *Cart) emit(op string, id domain.ProductID) {
	c.observers.notify(Change{Store: StoreCart, Op: op, ProfileID: c.profileID, ItemID: id})
}

func (c *Cart) dispose() {
	c.mu.Lock()
	c.disposed = true
	c.mu.Unlock()
	c.observers.reset()
}

// sanitizeCart drops lines without a valid ID and merges duplicate IDs so
// that a hand-edited or legacy document still satisfies the one-line-per-ID
// rule.
func sanitizeCart(ctx context.Context, in domain.Cart, logger *slog.Logger) domain.Cart {
	out := make(domain.Cart, 0, len(in))
	dropped := 0
	for _, item := range in {
		if item.ID <= 0 {
			dropped++
			continue
		}
		if i := out.IndexOf(item.ID); i >= 0 {
			out[i].Quantity += item.Quantity
			dropped++
			continue
		}
		out = append(out, item)
	}
	if dropped > 0 {
		logger.WarnContext(ctx, "repaired stored cart", slog.Int("dropped_lines", dropped))
	}
	return out
}
