package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	"github.com/markofilipovic2762/eshop-cms/internal/storage"
)

const wishlistKey = "wishlist"

// Wishlist holds saved products with set semantics by ID. Insertion order
// is kept for display.
type Wishlist struct {
	mu        sync.Mutex
	items     domain.Wishlist
	disposed  bool
	profileID string
	storage   storage.Store
	logger    *slog.Logger
	observers observers
}

func newWishlist(profileID string, s storage.Store, logger *slog.Logger) *Wishlist {
	return &Wishlist{profileID: profileID, storage: s, logger: logger}
}

// Init replaces the in-memory wishlist with the persisted one. Missing or
// corrupt data yields an empty wishlist.
func (w *Wishlist) Init(ctx context.Context) {
	items, ok := storage.Load[domain.Wishlist](ctx, w.storage, wishlistKey, w.logger)
	if !ok {
		items = nil
	}
	items = sanitizeWishlist(ctx, items, w.logger)

	w.mu.Lock()
	w.items = items
	w.mu.Unlock()
}

// Add inserts item unless its ID is already present.
func (w *Wishlist) Add(ctx context.Context, item domain.WishlistItem) error {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return ErrDisposed
	}
	if w.items.Contains(item.ID) {
		w.mu.Unlock()
		return nil
	}
	w.items = append(w.items, item)
	w.persist(ctx)
	w.mu.Unlock()

	w.emit(OpAdd, item.ID)
	return nil
}

// Remove drops the item with id. A missing id is a no-op.
func (w *Wishlist) Remove(ctx context.Context, id domain.ProductID) error {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return ErrDisposed
	}
	if !w.removeLocked(id) {
		w.mu.Unlock()
		return nil
	}
	w.persist(ctx)
	w.mu.Unlock()

	w.emit(OpRemove, id)
	return nil
}

// Clear empties the wishlist.
func (w *Wishlist) Clear(ctx context.Context) error {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return ErrDisposed
	}
	w.items = domain.Wishlist{}
	w.persist(ctx)
	w.mu.Unlock()

	w.emit(OpClear, 0)
	return nil
}

// Toggle removes item if present and adds it otherwise, as one step under
// the lock. It reports whether the item is in the wishlist afterwards.
func (w *Wishlist) Toggle(ctx context.Context, item domain.WishlistItem) (bool, error) {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return false, ErrDisposed
	}
	added := !w.removeLocked(item.ID)
	if added {
		w.items = append(w.items, item)
	}
	w.persist(ctx)
	w.mu.Unlock()

	op := OpRemove
	if added {
		op = OpAdd
	}
	w.emit(op, item.ID)
	return added, nil
}

// Contains reports whether id is saved.
func (w *Wishlist) Contains(id domain.ProductID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.items.Contains(id)
}

// Items returns a snapshot of the saved items.
func (w *Wishlist) Items() domain.Wishlist {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.items.Clone()
}

// Len returns the number of saved items.
func (w *Wishlist) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// Subscribe registers l for changes until the returned func is called.
func (w *Wishlist) Subscribe(l Listener) func() {
	return w.observers.subscribe(l)
}

func (w *Wishlist) removeLocked(id domain.ProductID) bool {
	i := w.items.IndexOf(id)
	if i < 0 {
		return false
	}
	w.items = append(w.items[:i:i], w.items[i+1:]...)
	return true
}

func (w *Wishlist) persist(ctx context.Context) {
	storage.Save(context.WithoutCancel(ctx), w.storage, wishlistKey, w.items, w.logger)
}

func (w *Wishlist) emit(op string, id domain.ProductID) {
	w.observers.notify(Change{Store: StoreWishlist, Op: op, ProfileID: w.profileID, ItemID: id})
}

func (w *Wishlist) dispose() {
	w.mu.Lock()
	w.disposed = true
	w.mu.Unlock()
	w.observers.reset()
}

func sanitizeWishlist(ctx context.Context, in domain.Wishlist, logger *slog.Logger) domain.Wishlist {
	out := make(domain.Wishlist, 0, len(in))
	dropped := 0
	for _, item := range in {
		if item.ID <= 0 || out.Contains(item.ID) {
			dropped++
			continue
		}
		out = append(out, item)
	}
	if dropped > 0 {
		logger.WarnContext(ctx, "repaired stored wishlist", slog.Int("dropped_items", dropped))
	}
	return out
}
